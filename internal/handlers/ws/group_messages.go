package ws

import "github.com/Triostacksoftware/HSCODE-sub000/internal/events"

// MessageJoinGroup subscribes the connection to group rooms. Groups the
// user does not belong to are skipped without an error frame.
type MessageJoinGroup struct {
	GroupIDs []uint `json:"groupIds"`
	// GroupID is accepted for clients joining a single group.
	GroupID uint `json:"groupId,omitempty"`
}

func (msg *MessageJoinGroup) GetType() string {
	return events.JoinGroup
}

func (msg *MessageJoinGroup) Process(ctx *MessageContext) error {
	ids := msg.GroupIDs
	if msg.GroupID != 0 {
		ids = append(ids, msg.GroupID)
	}
	_, err := ctx.Presence.Subscribe(ctx.Client.ID, ctx.Client.UserID, ids)
	return err
}

type MessageLeaveGroup struct {
	GroupID uint `json:"groupId"`
}

func (msg *MessageLeaveGroup) GetType() string {
	return events.LeaveGroup
}

func (msg *MessageLeaveGroup) Process(ctx *MessageContext) error {
	ctx.Presence.Leave(ctx.Client.ID, msg.GroupID)
	return nil
}

// MessageGroupOnlineUsers asks for the current roster of one group.
type MessageGroupOnlineUsers struct {
	GroupID uint `json:"groupId"`
}

func (msg *MessageGroupOnlineUsers) GetType() string {
	return events.GroupOnlineUsers
}

func (msg *MessageGroupOnlineUsers) Process(ctx *MessageContext) error {
	ctx.Presence.SendRoster(ctx.Client.ID, ctx.Client.UserID, msg.GroupID)
	return nil
}

type MessageMarkGroupRead struct {
	GroupID uint `json:"groupId"`
}

func (msg *MessageMarkGroupRead) GetType() string {
	return events.MarkGroupRead
}

func (msg *MessageMarkGroupRead) Process(ctx *MessageContext) error {
	return ctx.Unread.MarkRead(ctx.Client.UserID, msg.GroupID)
}
