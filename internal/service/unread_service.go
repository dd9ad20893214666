package service

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/cache"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/metrics"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/presence"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
)

// UnreadService keeps the buy/sell badges of every (user, group) pair in
// line with what the user has not yet seen. Counters only move through
// here, independent of whether realtime delivery succeeded.
type UnreadService struct {
	unreadRepo repository.UnreadRepositoryInterface
	groupRepo  repository.GroupRepositoryInterface
	registry   *presence.Registry
	notifier   Notifier
	cache      *cache.UnreadCache
}

func NewUnreadService(
	unreadRepo repository.UnreadRepositoryInterface,
	groupRepo repository.GroupRepositoryInterface,
	registry *presence.Registry,
	notifier Notifier,
	unreadCache *cache.UnreadCache,
) *UnreadService {
	return &UnreadService{
		unreadRepo: unreadRepo,
		groupRepo:  groupRepo,
		registry:   registry,
		notifier:   orNop(notifier),
		cache:      unreadCache,
	}
}

func (s *UnreadService) SetNotifier(n Notifier) {
	s.notifier = orNop(n)
}

// OnApprovedLeadDelivered increments the counter matching leadType for
// every member not viewing the group right now. Viewers are read from the
// registry at call time; someone opening the group a moment later still
// gets the increment.
func (s *UnreadService) OnApprovedLeadDelivered(groupID uint, leadType models.LeadType) ([]models.GroupUnread, error) {
	active := s.registry.ActiveUsers(events.GroupRoom(groupID))
	rows, err := s.unreadRepo.IncrementExcept(groupID, leadType, active)
	if err != nil {
		return nil, err
	}
	metrics.UnreadIncrements.WithLabelValues(string(leadType)).Add(float64(len(rows)))

	userIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.UserID)
	}
	if err := s.cache.Invalidate(userIDs...); err != nil {
		logging.Warn().Err(err).Uint("group_id", groupID).Msg("unread cache invalidate failed")
	}

	for _, row := range rows {
		if !s.registry.IsOnline(row.UserID) {
			continue
		}
		s.notifier.Emit(ToUsers(row.UserID), events.UnreadCountUpdated, events.UnreadCountPayload{
			GroupID:         row.GroupID,
			UnreadBuyCount:  row.UnreadBuyCount,
			UnreadSellCount: row.UnreadSellCount,
		})
	}
	return rows, nil
}

// MarkRead zeroes both counters for the pair. Repeated calls are no-ops.
func (s *UnreadService) MarkRead(userID, groupID uint) error {
	ok, err := s.groupRepo.IsMember(groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	if err := s.unreadRepo.Reset(groupID, userID); err != nil {
		return err
	}
	if err := s.cache.Invalidate(userID); err != nil {
		logging.Warn().Err(err).Uint("user_id", userID).Msg("unread cache invalidate failed")
	}
	// Other tabs of the same user clear their badge too.
	s.notifier.Emit(ToUsers(userID), events.UnreadCountUpdated, events.UnreadCountPayload{GroupID: groupID})
	return nil
}

// Snapshot returns the counters of every live group the user belongs to.
func (s *UnreadService) Snapshot(userID uint) (map[uint]models.UnreadCounts, error) {
	if snap, ok := s.cache.GetSnapshot(userID); ok {
		return snap, nil
	}
	rows, err := s.unreadRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	snap := make(map[uint]models.UnreadCounts, len(rows))
	for _, row := range rows {
		snap[row.GroupID] = row.Counts()
	}
	if err := s.cache.SetSnapshot(userID, snap); err != nil {
		logging.Warn().Err(err).Uint("user_id", userID).Msg("unread cache store failed")
	}
	return snap, nil
}

func (s *UnreadService) EnsureForMember(groupID, userID uint) error {
	if err := s.unreadRepo.EnsureForMember(groupID, userID); err != nil {
		return err
	}
	_ = s.cache.Invalidate(userID)
	return nil
}

func (s *UnreadService) DropMember(groupID, userID uint) error {
	if err := s.unreadRepo.DeleteForMember(groupID, userID); err != nil {
		return err
	}
	_ = s.cache.Invalidate(userID)
	return nil
}

// DropGroup deletes every counter of a deleted group.
func (s *UnreadService) DropGroup(groupID uint, memberIDs []uint) error {
	if err := s.unreadRepo.DeleteForGroup(groupID); err != nil {
		return err
	}
	_ = s.cache.Invalidate(memberIDs...)
	return nil
}
