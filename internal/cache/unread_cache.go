package cache

import (
	"fmt"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// UnreadSnapshotTTL bounds staleness if an invalidation is ever missed.
const UnreadSnapshotTTL = 1 * time.Minute

// UnreadCache stores per-user unread snapshots as msgpack blobs.
type UnreadCache struct {
	redis *RedisCache
}

func NewUnreadCache(redis *RedisCache) *UnreadCache {
	return &UnreadCache{redis: redis}
}

func unreadSnapshotKey(userID uint) string {
	return fmt.Sprintf("unread:%d", userID)
}

// GetSnapshot returns the cached group counters for a user.
func (uc *UnreadCache) GetSnapshot(userID uint) (map[uint]models.UnreadCounts, bool) {
	if uc == nil || uc.redis == nil {
		return nil, false
	}
	data, err := uc.redis.Get(unreadSnapshotKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var snapshot map[uint]models.UnreadCounts
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, false
	}
	return snapshot, true
}

func (uc *UnreadCache) SetSnapshot(userID uint, snapshot map[uint]models.UnreadCounts) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		return err
	}
	return uc.redis.Set(unreadSnapshotKey(userID), data, UnreadSnapshotTTL)
}

// Invalidate drops the cached snapshots of the given users.
func (uc *UnreadCache) Invalidate(userIDs ...uint) error {
	if uc == nil || uc.redis == nil || len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = unreadSnapshotKey(id)
	}
	return uc.redis.Delete(keys...)
}
