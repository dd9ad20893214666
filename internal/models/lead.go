package models

import (
	"time"
)

type LeadType string

const (
	LeadBuy  LeadType = "buy"
	LeadSell LeadType = "sell"
)

type LeadStatus string

const (
	LeadPending  LeadStatus = "pending"
	LeadApproved LeadStatus = "approved"
	LeadRejected LeadStatus = "rejected"
)

type BroadcastState string

const (
	BroadcastNone     BroadcastState = "none"
	BroadcastPending  BroadcastState = "pending"
	BroadcastApproved BroadcastState = "approved"
)

// Lead is a buy/sell inquiry posted into a group. Only approved leads are
// visible to group members; a rejected lead is never edited in place.
type Lead struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GroupID  uint `gorm:"not null;index:idx_leads_group_seq,priority:1" json:"group_id"`
	AuthorID uint `gorm:"not null;index" json:"author_id"`

	Type                 LeadType `gorm:"type:varchar(4);not null" json:"type"`
	HSCode               string   `gorm:"size:10;not null" json:"hs_code"`
	Description          string   `gorm:"type:text;not null" json:"description"`
	Quantity             string   `gorm:"size:120;not null" json:"quantity"`
	Packing              string   `gorm:"size:120;not null" json:"packing"`
	TargetPrice          string   `gorm:"size:120;not null" json:"target_price"`
	Negotiable           bool     `gorm:"not null;default:false" json:"negotiable"`
	BuyerDeliveryAddress string   `gorm:"type:text" json:"buyer_delivery_address,omitempty"`
	SellerPickupAddress  string   `gorm:"type:text" json:"seller_pickup_address,omitempty"`

	Status       LeadStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	AdminComment string     `gorm:"type:text" json:"admin_comment,omitempty"`
	ModeratedBy  *uint      `json:"moderated_by,omitempty"`
	ModeratedAt  *time.Time `json:"moderated_at,omitempty"`

	// Sequence is assigned on approval and is monotonic per group.
	Sequence uint64 `gorm:"not null;default:0;index:idx_leads_group_seq,priority:2" json:"sequence"`

	Broadcast   BroadcastState `gorm:"type:varchar(10);not null;default:'none';index" json:"broadcast"`
	BroadcastAt *time.Time     `json:"broadcast_at,omitempty"`

	ResentFromID *uint `gorm:"index" json:"resent_from_id,omitempty"`

	Documents []LeadDocument `gorm:"foreignKey:LeadID" json:"documents,omitempty"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"-"`
}

type LeadDocument struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	LeadID      uint      `gorm:"not null;index" json:"lead_id"`
	Key         string    `gorm:"not null" json:"-"`
	URL         string    `gorm:"-" json:"url,omitempty"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
}

// CanResend reports whether the author may spawn a revised lead from l.
func (l *Lead) CanResend() bool {
	return l.Status == LeadRejected
}

func (l *Lead) CanRequestBroadcast() bool {
	return l.Status == LeadApproved && l.Broadcast == BroadcastNone
}

func (l *Lead) Visible() bool {
	return l.Status == LeadApproved
}

type LeadResponse struct {
	ID                   uint           `json:"id"`
	GroupID              uint           `json:"groupId"`
	AuthorID             uint           `json:"authorId"`
	AuthorName           string         `json:"authorName,omitempty"`
	Type                 LeadType       `json:"type"`
	HSCode               string         `json:"hsCode"`
	Description          string         `json:"description"`
	Quantity             string         `json:"quantity"`
	Packing              string         `json:"packing"`
	TargetPrice          string         `json:"targetPrice"`
	Negotiable           bool           `json:"negotiable"`
	BuyerDeliveryAddress string         `json:"buyerDeliveryAddress,omitempty"`
	SellerPickupAddress  string         `json:"sellerPickupAddress,omitempty"`
	Status               LeadStatus     `json:"status"`
	AdminComment         string         `json:"adminComment,omitempty"`
	Sequence             uint64         `json:"sequence"`
	Broadcast            BroadcastState `json:"broadcast"`
	ResentFromID         *uint          `json:"resentFromId,omitempty"`
	Documents            []LeadDocument `json:"documents"`
	CreatedAt            time.Time      `json:"createdAt"`
	ModeratedAt          *time.Time     `json:"moderatedAt,omitempty"`
}

func (l *Lead) ToResponse() LeadResponse {
	docs := l.Documents
	if docs == nil {
		docs = []LeadDocument{}
	}
	return LeadResponse{
		ID:                   l.ID,
		GroupID:              l.GroupID,
		AuthorID:             l.AuthorID,
		AuthorName:           l.Author.Name,
		Type:                 l.Type,
		HSCode:               l.HSCode,
		Description:          l.Description,
		Quantity:             l.Quantity,
		Packing:              l.Packing,
		TargetPrice:          l.TargetPrice,
		Negotiable:           l.Negotiable,
		BuyerDeliveryAddress: l.BuyerDeliveryAddress,
		SellerPickupAddress:  l.SellerPickupAddress,
		Status:               l.Status,
		AdminComment:         l.AdminComment,
		Sequence:             l.Sequence,
		Broadcast:            l.Broadcast,
		ResentFromID:         l.ResentFromID,
		Documents:            docs,
		CreatedAt:            l.CreatedAt,
		ModeratedAt:          l.ModeratedAt,
	}
}
