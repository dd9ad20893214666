package service

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/cache"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/presence"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
)

// PresenceService answers who is online in a group and pushes roster
// changes to the group's room.
type PresenceService struct {
	groupRepo repository.GroupRepositoryInterface
	registry  *presence.Registry
	notifier  Notifier
	online    *cache.OnlineCache
}

func NewPresenceService(
	groupRepo repository.GroupRepositoryInterface,
	registry *presence.Registry,
	notifier Notifier,
	online *cache.OnlineCache,
) *PresenceService {
	return &PresenceService{
		groupRepo: groupRepo,
		registry:  registry,
		notifier:  orNop(notifier),
		online:    online,
	}
}

// SetNotifier wires the hub after construction; the hub itself needs the
// services to dispatch inbound events.
func (s *PresenceService) SetNotifier(n Notifier) {
	s.notifier = orNop(n)
}

func (s *PresenceService) Registry() *presence.Registry {
	return s.registry
}

// Connect registers a new connection. The user is mirrored online in Redis
// when this is their first connection.
func (s *PresenceService) Connect(conn presence.ConnID, userID uint) {
	if s.registry.Connect(conn, userID) {
		if err := s.online.SetUserOnline(userID); err != nil {
			logging.Warn().Err(err).Uint("user_id", userID).Msg("online mirror update failed")
		}
	}
}

// Subscribe joins conn to the rooms of every group in groupIDs the user is
// a member of. Other ids are skipped without any signal. It returns the
// group ids actually joined.
func (s *PresenceService) Subscribe(conn presence.ConnID, userID uint, groupIDs []uint) ([]uint, error) {
	allowed, err := s.groupRepo.FilterMemberGroups(userID, dedupe(groupIDs))
	if err != nil {
		return nil, err
	}
	for _, groupID := range allowed {
		room := events.GroupRoom(groupID)
		if s.registry.Join(conn, room) {
			s.emitRoster(ToRoom(room), groupID)
			continue
		}
		// Roster unchanged (another tab already present); bring this
		// connection up to date only.
		s.emitRoster(ToConn(conn), groupID)
	}
	return allowed, nil
}

// Leave removes conn from one group room.
func (s *PresenceService) Leave(conn presence.ConnID, groupID uint) {
	if s.registry.Leave(conn, events.GroupRoom(groupID)) {
		s.BroadcastRoster(groupID)
	}
}

// Unsubscribe is the disconnect cascade. Every close path (explicit
// logout, read error, pong timeout, slow-consumer eviction) ends here.
func (s *PresenceService) Unsubscribe(conn presence.ConnID) {
	changed, userID, last := s.registry.Disconnect(conn)
	for _, room := range changed {
		if groupID, ok := room.GroupID(); ok {
			s.BroadcastRoster(groupID)
		}
	}
	if last {
		if err := s.online.SetUserOffline(userID); err != nil {
			logging.Warn().Err(err).Uint("user_id", userID).Msg("online mirror update failed")
		}
	}
}

// Touch extends the user's online mirror TTL on keepalive.
func (s *PresenceService) Touch(userID uint) {
	if err := s.online.Refresh(userID); err != nil {
		logging.Warn().Err(err).Uint("user_id", userID).Msg("online mirror refresh failed")
	}
}

// Roster returns the online users of a group to one of its members.
func (s *PresenceService) Roster(userID, groupID uint) (events.GroupOnlineUsersPayload, error) {
	ok, err := s.groupRepo.IsMember(groupID, userID)
	if err != nil {
		return events.GroupOnlineUsersPayload{}, err
	}
	if !ok {
		return events.GroupOnlineUsersPayload{}, ErrNotMember
	}
	return s.rosterPayload(groupID), nil
}

// SendRoster pushes the roster of groupID to a single connection if the
// user is a member.
func (s *PresenceService) SendRoster(conn presence.ConnID, userID, groupID uint) {
	payload, err := s.Roster(userID, groupID)
	if err != nil {
		return
	}
	s.notifier.Emit(ToConn(conn), events.GroupOnlineUsers, payload)
}

// BroadcastRoster pushes the current roster of groupID to its room.
func (s *PresenceService) BroadcastRoster(groupID uint) {
	s.emitRoster(ToRoom(events.GroupRoom(groupID)), groupID)
}

// OnlineCount is the number of distinct online users. With the Redis mirror
// configured it covers every node, otherwise only this one.
func (s *PresenceService) OnlineCount() int64 {
	if s.online != nil {
		n, err := s.online.OnlineCount()
		if err == nil {
			return n
		}
		logging.Warn().Err(err).Msg("online mirror count failed")
	}
	return int64(s.registry.OnlineUsers())
}

func (s *PresenceService) emitRoster(target Target, groupID uint) {
	s.notifier.Emit(target, events.GroupOnlineUsers, s.rosterPayload(groupID))
}

func (s *PresenceService) rosterPayload(groupID uint) events.GroupOnlineUsersPayload {
	ids := s.registry.Roster(events.GroupRoom(groupID))
	return events.GroupOnlineUsersPayload{
		GroupID:       groupID,
		OnlineUserIDs: ids,
		OnlineUsers:   len(ids),
	}
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
