package models

import (
	"time"

	"gorm.io/gorm"
)

type GroupScope string

const (
	ScopeLocal  GroupScope = "local"
	ScopeGlobal GroupScope = "global"
)

func (s GroupScope) Valid() bool {
	return s == ScopeLocal || s == ScopeGlobal
}

// Group is a chat channel for one HS chapter.
type Group struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name      string     `gorm:"size:120;not null" json:"name"`
	HSChapter string     `gorm:"type:varchar(2);not null;index" json:"hs_chapter"`
	Scope     GroupScope `gorm:"type:varchar(10);not null;default:'local';index" json:"scope"`
	Image     string     `json:"image"`
	ImageKey  string     `json:"-"`

	// LeadSeq is the last sequence number handed to an approved lead.
	LeadSeq uint64 `gorm:"not null;default:0" json:"lead_seq"`

	Members []GroupMember `gorm:"foreignKey:GroupID" json:"-"`
}

type GroupMember struct {
	GroupID  uint      `gorm:"primaryKey" json:"group_id"`
	UserID   uint      `gorm:"primaryKey;index" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User  User  `gorm:"foreignKey:UserID" json:"-"`
	Group Group `gorm:"foreignKey:GroupID" json:"-"`
}

type GroupResponse struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	HSChapter       string     `json:"hs_chapter"`
	Scope           GroupScope `json:"scope"`
	Image           string     `json:"image"`
	UnreadBuyCount  int        `json:"unreadBuyCount"`
	UnreadSellCount int        `json:"unreadSellCount"`
}

func (g *Group) ToResponse(counts UnreadCounts) GroupResponse {
	return GroupResponse{
		ID:              g.ID,
		Name:            g.Name,
		HSChapter:       g.HSChapter,
		Scope:           g.Scope,
		Image:           g.Image,
		UnreadBuyCount:  counts.Buy,
		UnreadSellCount: counts.Sell,
	}
}
