package presence

import (
	"sync"
	"testing"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiConnectionRoster(t *testing.T) {
	r := NewRegistry()
	room := events.GroupRoom(1)

	require.True(t, r.Connect(1, 100))
	require.False(t, r.Connect(2, 100), "second tab is not the first connection")
	require.True(t, r.Connect(3, 200))

	assert.True(t, r.Join(1, room))
	assert.False(t, r.Join(2, room), "same user joining from a second tab does not change the roster")
	assert.True(t, r.Join(3, room))

	assert.Equal(t, []uint{100, 200}, r.Roster(room))
	assert.Len(t, r.Roster(room), 2)
	assert.Len(t, r.Connections(room), 3)

	changed, userID, last := r.Disconnect(1)
	assert.Empty(t, changed)
	assert.Equal(t, uint(100), userID)
	assert.False(t, last)
	assert.Len(t, r.Roster(room), 2, "one tab closing keeps the user in the roster")
	assert.Equal(t, []ConnID{2, 3}, r.Connections(room))

	changed, _, last = r.Disconnect(2)
	assert.Equal(t, []events.Room{room}, changed)
	assert.True(t, last)
	assert.Len(t, r.Roster(room), 1, "count drops by exactly one")
	assert.Equal(t, []uint{200}, r.Roster(room))
}

func TestJoinUnknownConnectionIgnored(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Join(9, events.GroupRoom(1)))
	assert.Len(t, r.Roster(events.GroupRoom(1)), 0)
}

func TestJoinTwiceIsIdempotent(t *testing.T) {
	r := NewRegistry()
	room := events.GroupRoom(4)
	r.Connect(1, 10)

	assert.True(t, r.Join(1, room))
	assert.False(t, r.Join(1, room))

	assert.True(t, r.Leave(1, room))
	assert.Len(t, r.Roster(room), 0)
	assert.False(t, r.Leave(1, room))
}

func TestDisconnectReturnsEveryChangedRoom(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, 10)
	r.Join(1, events.GroupRoom(2))
	r.Join(1, events.GroupRoom(1))
	r.Join(1, events.ChatRoom(5))

	changed, _, last := r.Disconnect(1)
	assert.True(t, last)
	assert.ElementsMatch(t, []events.Room{events.GroupRoom(1), events.GroupRoom(2), events.ChatRoom(5)}, changed)
	assert.False(t, r.IsOnline(10))
	assert.Empty(t, r.Connections(events.GroupRoom(1)))
	assert.Equal(t, 0, r.OnlineUsers())

	changed, _, _ = r.Disconnect(1)
	assert.Nil(t, changed, "second disconnect is a no-op")
}

func TestIsActiveAndUserConnections(t *testing.T) {
	r := NewRegistry()
	room := events.GroupRoom(3)
	r.Connect(1, 10)
	r.Connect(2, 10)
	r.Join(2, room)

	assert.True(t, r.IsActive(room, 10))
	assert.False(t, r.IsActive(room, 11))
	assert.Equal(t, []ConnID{1, 2}, r.UserConnections(10))
	assert.Equal(t, []uint{10}, r.ActiveUsers(room))
}

func TestRemoveRoomAndUser(t *testing.T) {
	r := NewRegistry()
	room := events.GroupRoom(8)
	r.Connect(1, 10)
	r.Connect(2, 10)
	r.Connect(3, 20)
	r.Join(1, room)
	r.Join(2, room)
	r.Join(3, room)

	assert.True(t, r.RemoveUserFromRoom(room, 10))
	assert.Equal(t, []uint{20}, r.Roster(room))
	assert.False(t, r.RemoveUserFromRoom(room, 10))

	conns := r.RemoveRoom(room)
	assert.Equal(t, []ConnID{3}, conns)
	assert.Empty(t, r.Roster(room))
	assert.Empty(t, r.Connections(room))
	assert.Equal(t, 2, r.OnlineUsers())
}

func TestConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry()
	room := events.GroupRoom(1)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			conn := ConnID(id)
			r.Connect(conn, uint(id%5))
			r.Join(conn, room)
			if id%2 == 0 {
				r.Disconnect(conn)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Connections(room), 25)
	assert.LessOrEqual(t, len(r.Roster(room)), 5)
}
