package clientsync

import (
	"sort"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
)

const DefaultTypingTimeout = events.TypingTimeoutMs * time.Millisecond

type typingKey struct {
	chatID uint
	userID uint
}

// TypingTracker shows who is typing. An indicator lapses on its own unless
// a follow-up event arrives; an explicit stop clears it early.
type TypingTracker struct {
	until map[typingKey]time.Time
	now   func() time.Time
}

func NewTypingTracker() *TypingTracker {
	return NewTypingTrackerWithClock(time.Now)
}

func NewTypingTrackerWithClock(now func() time.Time) *TypingTracker {
	return &TypingTracker{until: make(map[typingKey]time.Time), now: now}
}

func (t *TypingTracker) Apply(p events.TypingPayload) {
	key := typingKey{chatID: p.ChatID, userID: p.UserID}
	if !p.IsTyping {
		delete(t.until, key)
		return
	}
	timeout := DefaultTypingTimeout
	if p.ExpiresInMs > 0 {
		timeout = time.Duration(p.ExpiresInMs) * time.Millisecond
	}
	t.until[key] = t.now().Add(timeout)
}

func (t *TypingTracker) IsTyping(chatID, userID uint) bool {
	key := typingKey{chatID: chatID, userID: userID}
	until, ok := t.until[key]
	if !ok {
		return false
	}
	if !t.now().Before(until) {
		delete(t.until, key)
		return false
	}
	return true
}

// Typing returns the users currently typing in chatID, ascending.
func (t *TypingTracker) Typing(chatID uint) []uint {
	var out []uint
	for key := range t.until {
		if key.chatID == chatID && t.IsTyping(chatID, key.userID) {
			out = append(out, key.userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
