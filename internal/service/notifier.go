package service

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/presence"
)

// Target selects the connections an event is delivered to. The union of
// Rooms, Users and Conns is taken, each connection at most once, minus
// Except and minus every connection of ExceptUser.
type Target struct {
	Rooms      []events.Room
	Users      []uint
	Conns      []presence.ConnID
	Except     presence.ConnID
	ExceptUser uint
	Everyone   bool
}

func ToRoom(room events.Room) Target {
	return Target{Rooms: []events.Room{room}}
}

func ToUsers(userIDs ...uint) Target {
	return Target{Users: userIDs}
}

func ToConn(conn presence.ConnID) Target {
	return Target{Conns: []presence.ConnID{conn}}
}

func ToEveryone() Target {
	return Target{Everyone: true}
}

// Notifier pushes events to live connections. Delivery is best effort:
// nothing is queued for disconnected clients.
type Notifier interface {
	Emit(target Target, event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Emit(Target, string, interface{}) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
