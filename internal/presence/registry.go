// Package presence tracks which connections are subscribed to which rooms.
//
// Rooms map to sets of connection ids; a separate per-room reference count
// per user gives the deduplicated roster, so a user with two tabs open is
// listed once but both connections still receive room events.
package presence

import (
	"sort"
	"sync"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
)

// ConnID identifies one realtime connection.
type ConnID uint64

type entry struct {
	userID uint
	rooms  map[events.Room]struct{}
}

// Registry is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	conns     map[ConnID]*entry
	rooms     map[events.Room]map[ConnID]struct{}
	roomUsers map[events.Room]map[uint]int
	userConns map[uint]map[ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[ConnID]*entry),
		rooms:     make(map[events.Room]map[ConnID]struct{}),
		roomUsers: make(map[events.Room]map[uint]int),
		userConns: make(map[uint]map[ConnID]struct{}),
	}
}

// Connect registers a connection for userID. It reports whether this is
// the user's first open connection.
func (r *Registry) Connect(conn ConnID, userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; ok {
		return false
	}
	r.conns[conn] = &entry{userID: userID, rooms: make(map[events.Room]struct{})}
	set, ok := r.userConns[userID]
	if !ok {
		set = make(map[ConnID]struct{})
		r.userConns[userID] = set
	}
	set[conn] = struct{}{}
	return len(set) == 1
}

// Join subscribes conn to room. It reports whether the room's user roster
// changed, which is false when another connection of the same user was
// already present or the connection is unknown.
func (r *Registry) Join(conn ConnID, room events.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		return false
	}
	if _, already := e.rooms[room]; already {
		return false
	}
	e.rooms[room] = struct{}{}

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[ConnID]struct{})
		r.rooms[room] = members
	}
	members[conn] = struct{}{}

	users, ok := r.roomUsers[room]
	if !ok {
		users = make(map[uint]int)
		r.roomUsers[room] = users
	}
	users[e.userID]++
	return users[e.userID] == 1
}

// Leave unsubscribes conn from room and reports whether the roster changed.
func (r *Registry) Leave(conn ConnID, room events.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		return false
	}
	return r.leaveLocked(conn, e, room)
}

func (r *Registry) leaveLocked(conn ConnID, e *entry, room events.Room) bool {
	if _, ok := e.rooms[room]; !ok {
		return false
	}
	delete(e.rooms, room)

	if members, ok := r.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}

	users := r.roomUsers[room]
	if users == nil {
		return false
	}
	users[e.userID]--
	if users[e.userID] > 0 {
		return false
	}
	delete(users, e.userID)
	if len(users) == 0 {
		delete(r.roomUsers, room)
	}
	return true
}

// Disconnect removes conn from every room. It returns the rooms whose
// roster changed and whether the user has no connections left.
func (r *Registry) Disconnect(conn ConnID) (changed []events.Room, userID uint, lastConn bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		return nil, 0, false
	}
	for room := range e.rooms {
		if r.leaveLocked(conn, e, room) {
			changed = append(changed, room)
		}
	}
	delete(r.conns, conn)

	if set, ok := r.userConns[e.userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.userConns, e.userID)
			lastConn = true
		}
	}
	sortRooms(changed)
	return changed, e.userID, lastConn
}

// Roster returns the deduplicated user ids in room, ascending.
func (r *Registry) Roster(room events.Room) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := r.roomUsers[room]
	ids := make([]uint, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Connections returns every connection subscribed to room.
func (r *Registry) Connections(room events.Room) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedConns(r.rooms[room])
}

// UserConnections returns every open connection of userID.
func (r *Registry) UserConnections(userID uint) []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedConns(r.userConns[userID])
}

// IsActive reports whether any connection of userID is in room.
func (r *Registry) IsActive(room events.Room, userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roomUsers[room][userID] > 0
}

// ActiveUsers returns the users currently viewing room.
func (r *Registry) ActiveUsers(room events.Room) []uint {
	return r.Roster(room)
}

// IsOnline reports whether userID has any open connection.
func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID]) > 0
}

// OnlineUsers is the number of distinct users with an open connection.
func (r *Registry) OnlineUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns)
}

// RemoveRoom drops every subscription to room and returns the affected
// connections.
func (r *Registry) RemoveRoom(room events.Room) []ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := sortedConns(r.rooms[room])
	for _, c := range conns {
		if e, ok := r.conns[c]; ok {
			delete(e.rooms, room)
		}
	}
	delete(r.rooms, room)
	delete(r.roomUsers, room)
	return conns
}

// RemoveUserFromRoom unsubscribes every connection of userID from room and
// reports whether the roster changed.
func (r *Registry) RemoveUserFromRoom(room events.Room, userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for conn := range r.userConns[userID] {
		if e, ok := r.conns[conn]; ok && r.leaveLocked(conn, e, room) {
			changed = true
		}
	}
	return changed
}

func sortedConns(set map[ConnID]struct{}) []ConnID {
	out := make([]ConnID, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortRooms(rooms []events.Room) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
}
