package ws

import (
	"reflect"
)

var typeRegistry = map[string]reflect.Type{}

func init() {
	// Register all inbound message types
	RegisterType(&MessageJoinGroup{})
	RegisterType(&MessageLeaveGroup{})
	RegisterType(&MessageGroupOnlineUsers{})
	RegisterType(&MessageMarkGroupRead{})
	RegisterType(&MessageJoinUserChat{})
	RegisterType(&MessageLeaveUserChat{})
	RegisterType(&MessageUserTyping{})
	RegisterType(&MessageUserMessage{})
	RegisterType(&MessagePing{})
	RegisterType(&MessagePong{})
}

func RegisterType(msg Message) {
	typeRegistry[msg.GetType()] = reflect.TypeOf(msg).Elem()
}

// GetTypeRegistry returns the type registry for testing
func GetTypeRegistry() map[string]reflect.Type {
	return typeRegistry
}
