// Package events names the realtime frames exchanged over /ws and the
// payloads the server emits. Client apps depend on these names.
package events

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
)

// Client to server.
const (
	JoinGroup     = "join-group"
	LeaveGroup    = "leave-group"
	MarkGroupRead = "mark-group-read"
	JoinUserChat  = "join-user-chat"
	LeaveUserChat = "leave-user-chat"
	UserMessage   = "user-message"
	Ping          = "ping"
)

// Both directions.
const (
	GroupOnlineUsers = "group-online-users"
	UserTyping       = "user-typing"
)

// Server to client.
const (
	NewUserMessage        = "new-user-message"
	SwitchToChat          = "switch-to-chat"
	NewApprovedLead       = "new-approved-lead"
	NewApprovedGlobalLead = "new-approved-global-lead"
	NewBroadcastLead      = "new-broadcast-lead"
	UserJoinedGlobalGroup = "user-joined-global-group"
	UserLeftGlobalGroup   = "user-left-global-group"
	GlobalGroupCreated    = "global-group-created"
	GlobalGroupUpdated    = "global-group-updated"
	GlobalGroupDeleted    = "global-group-deleted"
	UnreadCountUpdated    = "unread-count-updated"
	ChatUnreadUpdated     = "chat-unread-updated"
	LeadModerated         = "lead-moderated"
	Error                 = "error"
	Pong                  = "pong"
)

// TypingTimeoutMs is how long a client shows a typing indicator without a
// follow-up event.
const TypingTimeoutMs = 3000

// Room identifies a fan-out scope on the realtime channel.
type Room string

func GroupRoom(groupID uint) Room {
	return Room(fmt.Sprintf("group:%d", groupID))
}

func ChatRoom(chatID uint) Room {
	return Room(fmt.Sprintf("chat:%d", chatID))
}

// GroupID extracts the group id from a group room.
func (r Room) GroupID() (uint, bool) {
	rest, ok := strings.CutPrefix(string(r), "group:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ApprovedLeadEvent picks the event name for a newly approved lead.
func ApprovedLeadEvent(scope models.GroupScope) string {
	if scope == models.ScopeGlobal {
		return NewApprovedGlobalLead
	}
	return NewApprovedLead
}

type GroupOnlineUsersPayload struct {
	GroupID       uint   `json:"groupId"`
	OnlineUserIDs []uint `json:"onlineUserIds"`
	OnlineUsers   int    `json:"onlineUsers"`
}

type GroupMembershipPayload struct {
	GroupID uint   `json:"groupId"`
	UserID  uint   `json:"userId"`
	Message string `json:"message"`
}

type GroupChangedPayload struct {
	GroupID uint                  `json:"groupId"`
	Group   *models.GroupResponse `json:"group,omitempty"`
}

type UnreadCountPayload struct {
	GroupID         uint `json:"groupId"`
	UnreadBuyCount  int  `json:"unreadBuyCount"`
	UnreadSellCount int  `json:"unreadSellCount"`
}

type ChatUnreadPayload struct {
	ChatID uint `json:"chatId"`
	Unread int  `json:"unread"`
}

type NewUserMessagePayload struct {
	ChatID  uint                         `json:"chatId"`
	Message models.DirectMessageResponse `json:"message"`
}

type SwitchToChatPayload struct {
	ChatID uint `json:"chatId"`
	PeerID uint `json:"peerId"`
}

type TypingPayload struct {
	ChatID      uint `json:"chatId"`
	UserID      uint `json:"userId"`
	IsTyping    bool `json:"isTyping"`
	ExpiresInMs int  `json:"expiresInMs"`
}

type LeadModeratedPayload struct {
	LeadID       uint                  `json:"leadId"`
	Status       models.LeadStatus     `json:"status"`
	Broadcast    models.BroadcastState `json:"broadcast"`
	AdminComment string                `json:"adminComment,omitempty"`
}

type BroadcastLeadPayload struct {
	OriginGroupID uint                `json:"originGroupId"`
	Lead          models.LeadResponse `json:"lead"`
}

type ErrorPayload struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}
