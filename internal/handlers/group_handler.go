package handlers

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type GroupHandler struct {
	groupService  *service.GroupService
	unreadService *service.UnreadService
}

func NewGroupHandler(groupService *service.GroupService, unreadService *service.UnreadService) *GroupHandler {
	return &GroupHandler{groupService: groupService, unreadService: unreadService}
}

func (h *GroupHandler) GetMyGroups(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	groups, err := h.groupService.MyGroups(userID)
	if err != nil {
		return httpx.FromError(c, err, "group_list_failed")
	}
	return c.JSON(groups)
}

func (h *GroupHandler) JoinGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	group, err := h.groupService.Join(userID, groupID)
	if err != nil {
		return httpx.FromError(c, err, "group_join_failed")
	}
	snap, err := h.unreadService.Snapshot(userID)
	if err != nil {
		return httpx.FromError(c, err, "group_join_failed")
	}
	return c.JSON(group.ToResponse(snap[group.ID]))
}

func (h *GroupHandler) LeaveGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	if err := h.groupService.Leave(userID, groupID); err != nil {
		return httpx.FromError(c, err, "group_leave_failed")
	}
	return c.JSON(fiber.Map{"message": "Left group successfully"})
}

func (h *GroupHandler) Online(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	roster, err := h.groupService.Roster(userID, groupID)
	if err != nil {
		return httpx.FromError(c, err, "roster_failed")
	}
	return c.JSON(roster)
}

func (h *GroupHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	if err := h.unreadService.MarkRead(userID, groupID); err != nil {
		return httpx.FromError(c, err, "mark_read_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GroupHandler) Unread(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	snap, err := h.unreadService.Snapshot(userID)
	if err != nil {
		return httpx.FromError(c, err, "unread_failed")
	}
	return c.JSON(snap)
}
