package cache

import (
	"fmt"
	"time"
)

const (
	// OnlineUsersTTL matches the default pong timeout.
	OnlineUsersTTL = 90 * time.Second

	onlineUsersKey = "online:users"
)

// OnlineCache mirrors which users hold at least one realtime connection so
// other processes and the admin API can read it.
type OnlineCache struct {
	redis *RedisCache
}

func NewOnlineCache(redis *RedisCache) *OnlineCache {
	return &OnlineCache{redis: redis}
}

func onlineUserKey(userID uint) string {
	return fmt.Sprintf("online:%d", userID)
}

func (oc *OnlineCache) SetUserOnline(userID uint) error {
	if oc == nil || oc.redis == nil {
		return nil
	}
	if err := oc.redis.SetAdd(onlineUsersKey, userID); err != nil {
		return err
	}
	return oc.redis.Set(onlineUserKey(userID), []byte("1"), OnlineUsersTTL)
}

func (oc *OnlineCache) SetUserOffline(userID uint) error {
	if oc == nil || oc.redis == nil {
		return nil
	}
	if err := oc.redis.SetRemove(onlineUsersKey, userID); err != nil {
		return err
	}
	return oc.redis.Delete(onlineUserKey(userID))
}

// Refresh extends the TTL of an online user, called on every pong.
func (oc *OnlineCache) Refresh(userID uint) error {
	if oc == nil || oc.redis == nil {
		return nil
	}
	return oc.redis.Set(onlineUserKey(userID), []byte("1"), OnlineUsersTTL)
}

// OnlineCount is the number of users online across every node.
func (oc *OnlineCache) OnlineCount() (int64, error) {
	if oc == nil || oc.redis == nil {
		return 0, nil
	}
	return oc.redis.SetCard(onlineUsersKey)
}
