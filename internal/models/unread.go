package models

import "time"

// GroupUnread holds the two independent badges a member sees for a group.
type GroupUnread struct {
	GroupID         uint      `gorm:"primaryKey" json:"group_id"`
	UserID          uint      `gorm:"primaryKey;index" json:"user_id"`
	UnreadBuyCount  int       `gorm:"not null;default:0" json:"unreadBuyCount"`
	UnreadSellCount int       `gorm:"not null;default:0" json:"unreadSellCount"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type UnreadCounts struct {
	Buy  int `json:"unreadBuyCount" msgpack:"b"`
	Sell int `json:"unreadSellCount" msgpack:"s"`
}

func (u GroupUnread) Counts() UnreadCounts {
	return UnreadCounts{Buy: u.UnreadBuyCount, Sell: u.UnreadSellCount}
}
