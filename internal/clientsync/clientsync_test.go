package clientsync

import (
	"testing"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func msg(id, sender uint, clientID, content string) models.DirectMessageResponse {
	return models.DirectMessageResponse{ID: id, ChatID: 7, SenderID: sender, ClientID: clientID, Content: content}
}

func TestMessageListDropsKnownIDs(t *testing.T) {
	clock := newClock()
	l := NewMessageListWithClock(clock.Now)

	assert.True(t, l.Merge(msg(1, 2, "a", "hello")))
	clock.Advance(5 * time.Second)
	assert.False(t, l.Merge(msg(1, 2, "a", "hello")))
	assert.Equal(t, 1, l.Len())
}

func TestMessageListEchoWindow(t *testing.T) {
	clock := newClock()
	l := NewMessageListWithClock(clock.Now)

	require.True(t, l.Merge(msg(1, 2, "", "ok")))

	clock.Advance(500 * time.Millisecond)
	assert.False(t, l.Merge(msg(2, 2, "", "ok")), "same content and sender inside the window")
	assert.True(t, l.Merge(msg(3, 3, "", "ok")), "another sender is never an echo")

	clock.Advance(time.Second)
	assert.True(t, l.Merge(msg(4, 2, "", "ok")), "outside the window the repeat is real")
	assert.Equal(t, 3, l.Len())
}

func TestMessageListReplacesOptimisticCopy(t *testing.T) {
	clock := newClock()
	l := NewMessageListWithClock(clock.Now)

	l.AppendLocal(msg(0, 1, "c-1", "draft sent"))
	clock.Advance(3 * time.Second)

	assert.False(t, l.Merge(msg(41, 1, "c-1", "draft sent")))
	got := l.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, uint(41), got[0].ID)

	// The stored id is now known.
	assert.False(t, l.Merge(msg(41, 1, "c-1", "draft sent")))
}

func TestTypingTrackerExpires(t *testing.T) {
	clock := newClock()
	tr := NewTypingTrackerWithClock(clock.Now)

	tr.Apply(events.TypingPayload{ChatID: 7, UserID: 2, IsTyping: true})
	assert.True(t, tr.IsTyping(7, 2))

	clock.Advance(2 * time.Second)
	tr.Apply(events.TypingPayload{ChatID: 7, UserID: 2, IsTyping: true, ExpiresInMs: events.TypingTimeoutMs})
	clock.Advance(2 * time.Second)
	assert.True(t, tr.IsTyping(7, 2), "follow-up extends the indicator")

	clock.Advance(time.Second + time.Millisecond)
	assert.False(t, tr.IsTyping(7, 2))
	assert.Empty(t, tr.Typing(7))
}

func TestTypingTrackerExplicitStop(t *testing.T) {
	clock := newClock()
	tr := NewTypingTrackerWithClock(clock.Now)

	tr.Apply(events.TypingPayload{ChatID: 7, UserID: 3, IsTyping: true})
	tr.Apply(events.TypingPayload{ChatID: 7, UserID: 2, IsTyping: true})
	tr.Apply(events.TypingPayload{ChatID: 8, UserID: 4, IsTyping: true})
	assert.Equal(t, []uint{2, 3}, tr.Typing(7))

	tr.Apply(events.TypingPayload{ChatID: 7, UserID: 3, IsTyping: false})
	assert.Equal(t, []uint{2}, tr.Typing(7))
}

func lead(t *testing.T, id uint, seq uint64) models.LeadResponse {
	l := testutil.NewTestHelper(t).CreateTestLead(id, 5, 1)
	l.Status = models.LeadApproved
	l.Sequence = seq
	return l.ToResponse()
}

func TestLeadFeedMergesPagesAndEvents(t *testing.T) {
	f := NewLeadFeed(5)

	// Live event lands before the history page that also contains it.
	assert.Equal(t, 1, f.Merge(lead(t, 30, 3)))
	assert.Equal(t, 2, f.Merge(lead(t, 10, 1), lead(t, 20, 2), lead(t, 30, 3)))
	assert.Equal(t, 0, f.Merge(lead(t, 20, 2)))

	var seqs []uint64
	for _, l := range f.Leads() {
		seqs = append(seqs, l.Sequence)
	}
	assert.Equal(t, []uint64{1, 2, 3}, seqs)
	assert.Equal(t, uint64(3), f.LastSequence())
	assert.Empty(t, f.Gaps())
}

func TestLeadFeedIgnoresOtherGroupsAndReportsGaps(t *testing.T) {
	f := NewLeadFeed(5)

	other := lead(t, 99, 1)
	other.GroupID = 6
	assert.Equal(t, 0, f.Merge(other))

	f.Merge(lead(t, 10, 1), lead(t, 40, 4))
	assert.Equal(t, []uint64{2, 3}, f.Gaps())
}
