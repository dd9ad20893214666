package ws

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
)

type MessageJoinUserChat struct {
	ChatID uint `json:"chatId"`
}

func (msg *MessageJoinUserChat) GetType() string {
	return events.JoinUserChat
}

func (msg *MessageJoinUserChat) Process(ctx *MessageContext) error {
	return ctx.Chat.JoinRoom(ctx.Client.ID, ctx.Client.UserID, msg.ChatID)
}

type MessageLeaveUserChat struct {
	ChatID uint `json:"chatId"`
}

func (msg *MessageLeaveUserChat) GetType() string {
	return events.LeaveUserChat
}

func (msg *MessageLeaveUserChat) Process(ctx *MessageContext) error {
	ctx.Chat.LeaveRoom(ctx.Client.ID, msg.ChatID)
	return nil
}

// MessageUserTyping is relayed to the other participant only. The userId
// on the wire is ignored; the connection's user is authoritative.
type MessageUserTyping struct {
	ChatID   uint `json:"chatId"`
	UserID   uint `json:"userId,omitempty"`
	IsTyping bool `json:"isTyping"`
}

func (msg *MessageUserTyping) GetType() string {
	return events.UserTyping
}

func (msg *MessageUserTyping) Process(ctx *MessageContext) error {
	return ctx.Chat.Typing(ctx.Client.ID, ctx.Client.UserID, msg.ChatID, msg.IsTyping)
}

// MessageUserMessage carries a direct message. Message is either the text
// itself or an object referencing a message already stored over HTTP.
type MessageUserMessage struct {
	ChatID     uint            `json:"chatId"`
	Message    json.RawMessage `json:"message"`
	ReceiverID uint            `json:"receiverId"`
}

type userMessageBody struct {
	ID       uint   `json:"id"`
	ClientID string `json:"clientId"`
	Content  string `json:"content"`
}

func (msg *MessageUserMessage) GetType() string {
	return events.UserMessage
}

func (msg *MessageUserMessage) Process(ctx *MessageContext) error {
	body, err := msg.body()
	if err != nil {
		return err
	}
	_, err = ctx.Chat.Relay(ctx.Client.UserID, service.RelayInput{
		ChatID:     msg.ChatID,
		MessageID:  body.ID,
		ClientID:   body.ClientID,
		Content:    body.Content,
		ReceiverID: msg.ReceiverID,
		Origin:     ctx.Client.ID,
	})
	return err
}

func (msg *MessageUserMessage) body() (userMessageBody, error) {
	raw := bytes.TrimSpace(msg.Message)
	if len(raw) == 0 {
		return userMessageBody{}, &service.ValidationError{Fields: map[string]string{"message": "is required"}}
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return userMessageBody{}, err
		}
		return userMessageBody{Content: text}, nil
	}
	var body userMessageBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return userMessageBody{}, errors.New("message must be a string or an object")
	}
	return body, nil
}
