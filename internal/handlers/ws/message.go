package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
)

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	Client   *Client
	Hub      *Hub
	Presence *service.PresenceService
	Unread   *service.UnreadService
	Chat     *service.ChatService
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error frame to the client. The connection stays open.
func SendError(ctx *MessageContext, code, message string, details map[string]string) {
	ctx.Hub.Send(ctx.Client, events.Error, events.ErrorPayload{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
