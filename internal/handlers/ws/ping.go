package ws

import "github.com/Triostacksoftware/HSCODE-sub000/internal/events"

// MessagePing is a keepalive ping from client
type MessagePing struct {
}

func (msg *MessagePing) GetType() string {
	return events.Ping
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	ctx.Client.Touch()
	ctx.Presence.Touch(ctx.Client.UserID)
	ctx.Hub.Send(ctx.Client, events.Pong, nil)
	return nil
}

// MessagePong is a pong response (in case client wants to track latency)
type MessagePong struct {
}

func (msg *MessagePong) GetType() string {
	return events.Pong
}

func (msg *MessagePong) Process(ctx *MessageContext) error {
	ctx.Client.Touch()
	return nil
}
