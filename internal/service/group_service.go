package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/events"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/storage"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/validation"
)

type GroupInput struct {
	Name      string            `json:"name" validate:"required,max=120"`
	HSChapter string            `json:"hsChapter" validate:"required,hschapter"`
	Scope     models.GroupScope `json:"scope" validate:"required,oneof=local global"`
}

func (in *GroupInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.HSChapter = strings.TrimSpace(in.HSChapter)
	in.Scope = models.GroupScope(strings.ToLower(strings.TrimSpace(string(in.Scope))))
	if in.Scope == "" {
		in.Scope = models.ScopeLocal
	}
}

// MyGroups splits a user's memberships by scope and carries their badges.
type MyGroups struct {
	LocalGroupIDs  []uint                 `json:"localGroupIds"`
	GlobalGroupIDs []uint                 `json:"globalGroupIds"`
	Groups         []models.GroupResponse `json:"groups"`
}

// GroupChange is a group mutation made outside this process, read from
// the group events stream.
type GroupChange struct {
	Kind    string `json:"kind"`
	GroupID uint   `json:"groupId"`
}

const (
	GroupChangeCreated = "created"
	GroupChangeUpdated = "updated"
	GroupChangeDeleted = "deleted"
)

type GroupService struct {
	groupRepo    repository.GroupRepositoryInterface
	userRepo     repository.UserRepositoryInterface
	unread       *UnreadService
	presence     *PresenceService
	notifier     Notifier
	store        storage.ObjectStore
	mediaBaseURL string
}

func NewGroupService(
	groupRepo repository.GroupRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	unread *UnreadService,
	presenceService *PresenceService,
	notifier Notifier,
	store storage.ObjectStore,
	mediaBaseURL string,
) *GroupService {
	return &GroupService{
		groupRepo:    groupRepo,
		userRepo:     userRepo,
		unread:       unread,
		presence:     presenceService,
		notifier:     orNop(notifier),
		store:        store,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
	}
}

func (s *GroupService) SetNotifier(n Notifier) {
	s.notifier = orNop(n)
}

// Join adds the user to the group and creates their counter row.
func (s *GroupService) Join(userID, groupID uint) (*models.Group, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	already, err := s.groupRepo.IsMember(groupID, userID)
	if err != nil {
		return nil, err
	}
	if already {
		return group, nil
	}
	if err := s.groupRepo.AddMember(groupID, userID); err != nil {
		return nil, err
	}
	if err := s.unread.EnsureForMember(groupID, userID); err != nil {
		logging.Warn().Err(err).Uint("group_id", groupID).Uint("user_id", userID).Msg("unread row create failed")
	}
	if group.Scope == models.ScopeGlobal {
		s.notifier.Emit(ToRoom(events.GroupRoom(groupID)), events.UserJoinedGlobalGroup, events.GroupMembershipPayload{
			GroupID: groupID,
			UserID:  userID,
			Message: s.displayName(userID) + " joined the group",
		})
	}
	return group, nil
}

// Leave removes the membership, its counters and any live subscription.
func (s *GroupService) Leave(userID, groupID uint) error {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return notFoundOr(err)
	}
	member, err := s.groupRepo.IsMember(groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	if err := s.groupRepo.RemoveMember(groupID, userID); err != nil {
		return err
	}
	if err := s.unread.DropMember(groupID, userID); err != nil {
		logging.Warn().Err(err).Uint("group_id", groupID).Uint("user_id", userID).Msg("unread row delete failed")
	}
	if s.presence.Registry().RemoveUserFromRoom(events.GroupRoom(groupID), userID) {
		s.presence.BroadcastRoster(groupID)
	}
	if group.Scope == models.ScopeGlobal {
		s.notifier.Emit(ToRoom(events.GroupRoom(groupID)), events.UserLeftGlobalGroup, events.GroupMembershipPayload{
			GroupID: groupID,
			UserID:  userID,
			Message: s.displayName(userID) + " left the group",
		})
	}
	return nil
}

func (s *GroupService) MyGroups(userID uint) (*MyGroups, error) {
	groups, err := s.groupRepo.GetUserGroups(userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.unread.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	out := &MyGroups{
		LocalGroupIDs:  []uint{},
		GlobalGroupIDs: []uint{},
		Groups:         make([]models.GroupResponse, 0, len(groups)),
	}
	for i := range groups {
		g := &groups[i]
		if g.Scope == models.ScopeGlobal {
			out.GlobalGroupIDs = append(out.GlobalGroupIDs, g.ID)
		} else {
			out.LocalGroupIDs = append(out.LocalGroupIDs, g.ID)
		}
		out.Groups = append(out.Groups, g.ToResponse(snap[g.ID]))
	}
	return out, nil
}

func (s *GroupService) Create(in GroupInput) (*models.Group, error) {
	in.normalize()
	if errs := validation.Struct(in); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	group := &models.Group{Name: in.Name, HSChapter: in.HSChapter, Scope: in.Scope}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, err
	}
	s.emitChanged(events.GlobalGroupCreated, group)
	return group, nil
}

// CreateBulk validates every row before inserting any.
func (s *GroupService) CreateBulk(inputs []GroupInput) ([]models.Group, error) {
	if len(inputs) == 0 {
		return nil, fieldError("groups", "is required")
	}
	groups := make([]models.Group, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		in.normalize()
		if errs := validation.Struct(in); errs != nil {
			prefixed := make(map[string]string, len(errs))
			for k, v := range errs {
				prefixed[fmt.Sprintf("groups[%d].%s", i, k)] = v
			}
			return nil, &ValidationError{Fields: prefixed}
		}
		groups = append(groups, models.Group{Name: in.Name, HSChapter: in.HSChapter, Scope: in.Scope})
	}
	if err := s.groupRepo.CreateBatch(groups); err != nil {
		return nil, err
	}
	for i := range groups {
		s.emitChanged(events.GlobalGroupCreated, &groups[i])
	}
	return groups, nil
}

func (s *GroupService) Update(groupID uint, in GroupInput) (*models.Group, error) {
	in.normalize()
	if errs := validation.Struct(in); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	group.Name = in.Name
	group.HSChapter = in.HSChapter
	group.Scope = in.Scope
	if err := s.groupRepo.Update(group); err != nil {
		return nil, err
	}
	s.emitChanged(events.GlobalGroupUpdated, group)
	return group, nil
}

// Delete soft-deletes the group, drops its counters and empties its room.
func (s *GroupService) Delete(groupID uint) error {
	memberIDs, err := s.groupRepo.GetMemberIDs(groupID)
	if err != nil {
		return err
	}
	if err := s.groupRepo.Delete(groupID); err != nil {
		return notFoundOr(err)
	}
	s.afterDelete(groupID, memberIDs)
	return nil
}

func (s *GroupService) afterDelete(groupID uint, memberIDs []uint) {
	if err := s.unread.DropGroup(groupID, memberIDs); err != nil {
		logging.Warn().Err(err).Uint("group_id", groupID).Msg("unread counters delete failed")
	}
	s.presence.Registry().RemoveRoom(events.GroupRoom(groupID))
	s.notifier.Emit(ToEveryone(), events.GlobalGroupDeleted, events.GroupChangedPayload{GroupID: groupID})
}

// SetImage normalises an uploaded image to JPEG and stores it as the group
// image, replacing the previous object.
func (s *GroupService) SetImage(ctx context.Context, groupID uint, r io.Reader) (*models.Group, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	jpegBytes, contentType, size, err := storage.ProcessGroupImage(r, storage.DefaultGroupImageOptions())
	if err != nil {
		return nil, fieldError("image", err.Error())
	}
	key := storage.GroupImageKey(groupID)
	if _, err := s.store.PutObject(ctx, key, bytes.NewReader(jpegBytes), size, contentType); err != nil {
		return nil, err
	}

	// Keep old key; delete only after DB update succeeds.
	oldKey := strings.TrimSpace(group.ImageKey)
	group.Image = s.mediaBaseURL + "/" + key
	group.ImageKey = key
	if err := s.groupRepo.Update(group); err != nil {
		_ = s.store.DeleteObject(ctx, key)
		return nil, err
	}
	if oldKey != "" && oldKey != key {
		_ = s.store.DeleteObject(ctx, oldKey)
	}
	s.emitChanged(events.GlobalGroupUpdated, group)
	return group, nil
}

// HandleExternalChange replays a group mutation made by the admin API so
// connected clients refresh their lists.
func (s *GroupService) HandleExternalChange(change GroupChange) error {
	switch change.Kind {
	case GroupChangeDeleted:
		memberIDs, err := s.groupRepo.GetMemberIDs(change.GroupID)
		if err != nil {
			return err
		}
		s.afterDelete(change.GroupID, memberIDs)
		return nil
	case GroupChangeCreated, GroupChangeUpdated:
		group, err := s.groupRepo.FindByID(change.GroupID)
		if err != nil {
			return notFoundOr(err)
		}
		event := events.GlobalGroupUpdated
		if change.Kind == GroupChangeCreated {
			event = events.GlobalGroupCreated
		}
		s.emitChanged(event, group)
		return nil
	default:
		return fmt.Errorf("unknown group change %q", change.Kind)
	}
}

// Roster exposes the group's online users to a member over HTTP.
func (s *GroupService) Roster(userID, groupID uint) (events.GroupOnlineUsersPayload, error) {
	return s.presence.Roster(userID, groupID)
}

// emitChanged covers both scopes. The protocol has a single group-list
// invalidation family; clients tell local from global by Group.Scope.
func (s *GroupService) emitChanged(event string, group *models.Group) {
	resp := group.ToResponse(models.UnreadCounts{})
	s.notifier.Emit(ToEveryone(), event, events.GroupChangedPayload{GroupID: group.ID, Group: &resp})
}

func (s *GroupService) displayName(userID uint) string {
	user, err := s.userRepo.FindByID(userID)
	if err != nil || strings.TrimSpace(user.Name) == "" {
		return fmt.Sprintf("User %d", userID)
	}
	return user.Name
}
