package models

import (
	"time"
)

// DirectChat is a two-party conversation. The pair is stored ordered so
// (a, b) and (b, a) resolve to the same row.
type DirectChat struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserAID uint `gorm:"not null;uniqueIndex:idx_direct_chat_pair,priority:1" json:"user_a_id"`
	UserBID uint `gorm:"not null;uniqueIndex:idx_direct_chat_pair,priority:2;index" json:"user_b_id"`

	UnreadA int `gorm:"not null;default:0" json:"-"`
	UnreadB int `gorm:"not null;default:0" json:"-"`

	LastMessageID       *uint      `json:"last_message_id,omitempty"`
	LastMessageContent  string     `gorm:"type:text" json:"last_message_content,omitempty"`
	LastMessageSenderID *uint      `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time `gorm:"index" json:"last_message_at,omitempty"`
}

// OrderedPair returns the two ids low-first.
func OrderedPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

func (c *DirectChat) HasParticipant(userID uint) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Peer returns the other participant, or 0 when userID is not in the chat.
func (c *DirectChat) Peer(userID uint) uint {
	switch userID {
	case c.UserAID:
		return c.UserBID
	case c.UserBID:
		return c.UserAID
	}
	return 0
}

func (c *DirectChat) UnreadFor(userID uint) int {
	if userID == c.UserAID {
		return c.UnreadA
	}
	if userID == c.UserBID {
		return c.UnreadB
	}
	return 0
}

type DirectMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	ChatID    uint      `gorm:"not null;index" json:"chat_id"`
	ClientID  string    `gorm:"size:64;uniqueIndex:idx_direct_message_client,priority:2" json:"client_id"`
	SenderID  uint      `gorm:"not null;uniqueIndex:idx_direct_message_client,priority:1" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
}

type DirectMessageResponse struct {
	ID        uint      `json:"id"`
	ChatID    uint      `json:"chatId"`
	ClientID  string    `json:"clientId"`
	SenderID  uint      `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *DirectMessage) ToResponse() DirectMessageResponse {
	return DirectMessageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		ClientID:  m.ClientID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

type DirectChatResponse struct {
	ID            uint       `json:"id"`
	PeerID        uint       `json:"peerId"`
	PeerName      string     `json:"peerName,omitempty"`
	Unread        int        `json:"unread"`
	LastMessage   string     `json:"lastMessage,omitempty"`
	LastSenderID  *uint      `json:"lastSenderId,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

func (c *DirectChat) ToResponse(viewerID uint) DirectChatResponse {
	return DirectChatResponse{
		ID:            c.ID,
		PeerID:        c.Peer(viewerID),
		Unread:        c.UnreadFor(viewerID),
		LastMessage:   c.LastMessageContent,
		LastSenderID:  c.LastMessageSenderID,
		LastMessageAt: c.LastMessageAt,
	}
}
