package models

import (
	"time"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierAdmin   Tier = "admin"
)

// User mirrors the account record owned by the identity provider. Only the
// fields the realtime core reads are mapped here.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string `gorm:"size:120" json:"name"`
	Phone string `gorm:"size:32;index" json:"-"`
	Tier  Tier   `gorm:"type:varchar(16);not null;default:'free'" json:"tier"`
}

// CanDirectChat reports whether the user's tier unlocks 1:1 chat.
func (u *User) CanDirectChat() bool {
	return u.Tier == TierPremium || u.Tier == TierAdmin
}

func (u *User) IsAdmin() bool {
	return u.Tier == TierAdmin
}

type UserResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Tier Tier   `json:"tier"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:   u.ID,
		Name: u.Name,
		Tier: u.Tier,
	}
}
