package clientsync

import (
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
)

// EchoWindow is how long an identical message from the same sender is
// treated as an echo of one already shown.
const EchoWindow = time.Second

type entry struct {
	msg     models.DirectMessageResponse
	arrived time.Time
}

// MessageList is one chat's local message list.
type MessageList struct {
	entries []entry
	byID    map[uint]int
	now     func() time.Time
}

func NewMessageList() *MessageList {
	return NewMessageListWithClock(time.Now)
}

func NewMessageListWithClock(now func() time.Time) *MessageList {
	return &MessageList{byID: make(map[uint]int), now: now}
}

// AppendLocal shows a message before the server has stored it.
func (l *MessageList) AppendLocal(msg models.DirectMessageResponse) {
	l.push(msg)
}

// Merge applies a message from the server and reports whether it was
// added. A message is discarded when its id is already present or when the
// same sender sent identical content within EchoWindow. A stored copy of an
// optimistic message replaces it in place.
func (l *MessageList) Merge(msg models.DirectMessageResponse) bool {
	if msg.ID != 0 {
		if _, ok := l.byID[msg.ID]; ok {
			return false
		}
	}
	now := l.now()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := &l.entries[i]
		if e.msg.SenderID != msg.SenderID {
			continue
		}
		if msg.ClientID != "" && e.msg.ID == 0 && e.msg.ClientID == msg.ClientID {
			e.msg = msg
			if msg.ID != 0 {
				l.byID[msg.ID] = i
			}
			return false
		}
		if e.msg.Content == msg.Content && now.Sub(e.arrived) < EchoWindow {
			return false
		}
	}
	l.push(msg)
	return true
}

func (l *MessageList) push(msg models.DirectMessageResponse) {
	l.entries = append(l.entries, entry{msg: msg, arrived: l.now()})
	if msg.ID != 0 {
		l.byID[msg.ID] = len(l.entries) - 1
	}
}

// Messages returns the list in display order.
func (l *MessageList) Messages() []models.DirectMessageResponse {
	out := make([]models.DirectMessageResponse, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.msg
	}
	return out
}

func (l *MessageList) Len() int {
	return len(l.entries)
}
