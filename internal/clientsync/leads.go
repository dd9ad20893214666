package clientsync

import (
	"sort"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
)

// LeadFeed is one group's approved leads ordered by group sequence. History
// pages and live new-approved-lead events may overlap in any order.
type LeadFeed struct {
	groupID uint
	leads   map[uint]models.LeadResponse
}

func NewLeadFeed(groupID uint) *LeadFeed {
	return &LeadFeed{groupID: groupID, leads: make(map[uint]models.LeadResponse)}
}

// Merge adds leads of this group and returns how many were new. A lead
// already present is replaced, so a later copy wins.
func (f *LeadFeed) Merge(leads ...models.LeadResponse) int {
	added := 0
	for _, l := range leads {
		if l.GroupID != f.groupID || l.Sequence == 0 {
			continue
		}
		if _, ok := f.leads[l.ID]; !ok {
			added++
		}
		f.leads[l.ID] = l
	}
	return added
}

// Leads returns the feed in ascending sequence order.
func (f *LeadFeed) Leads() []models.LeadResponse {
	out := make([]models.LeadResponse, 0, len(f.leads))
	for _, l := range f.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// LastSequence is the after_seq to resume from after a reconnect.
func (f *LeadFeed) LastSequence() uint64 {
	var last uint64
	for _, l := range f.leads {
		if l.Sequence > last {
			last = l.Sequence
		}
	}
	return last
}

// Gaps returns the sequence numbers missing between the oldest and newest
// lead held. A client backfills them with a history fetch.
func (f *LeadFeed) Gaps() []uint64 {
	ordered := f.Leads()
	var gaps []uint64
	for i := 1; i < len(ordered); i++ {
		for seq := ordered[i-1].Sequence + 1; seq < ordered[i].Sequence; seq++ {
			gaps = append(gaps, seq)
		}
	}
	return gaps
}
