package handlers

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	leadService  *service.LeadService
	groupService *service.GroupService
}

func NewAdminHandler(leadService *service.LeadService, groupService *service.GroupService) *AdminHandler {
	return &AdminHandler{leadService: leadService, groupService: groupService}
}

type ModerationRequest struct {
	Comment string `json:"comment"`
}

type BulkGroupsRequest struct {
	Groups []service.GroupInput `json:"groups"`
}

func (h *AdminHandler) ListLeads(c *fiber.Ctx) error {
	status := c.Query("status", string(models.LeadPending))
	if status != string(models.LeadPending) {
		return httpx.BadRequest(c, "invalid_status", "Only pending leads can be listed")
	}
	leads, err := h.leadService.Pending(c.QueryInt("limit", 0))
	if err != nil {
		return httpx.FromError(c, err, "lead_list_failed")
	}
	return c.JSON(leadResponses(leads))
}

func (h *AdminHandler) ListBroadcasts(c *fiber.Ctx) error {
	leads, err := h.leadService.PendingBroadcasts(c.QueryInt("limit", 0))
	if err != nil {
		return httpx.FromError(c, err, "broadcast_list_failed")
	}
	return c.JSON(leadResponses(leads))
}

func (h *AdminHandler) Approve(c *fiber.Ctx) error {
	return h.moderate(c, "lead_approve_failed", h.leadService.Approve)
}

func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	return h.moderate(c, "lead_reject_failed", h.leadService.Reject)
}

func (h *AdminHandler) ApproveBroadcast(c *fiber.Ctx) error {
	return h.moderateBroadcast(c, "broadcast_approve_failed", h.leadService.ApproveBroadcast)
}

func (h *AdminHandler) DeclineBroadcast(c *fiber.Ctx) error {
	return h.moderateBroadcast(c, "broadcast_decline_failed", h.leadService.DeclineBroadcast)
}

func (h *AdminHandler) moderate(c *fiber.Ctx, failCode string, op func(leadID, adminID uint, comment string) (*models.Lead, error)) error {
	adminID, err := currentUser(c)
	if err != nil {
		return err
	}
	leadID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_lead_id", "Invalid lead ID")
	}
	var req ModerationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return httpx.BadRequest(c, "invalid_body", "Invalid request body")
		}
	}
	lead, err := op(leadID, adminID, req.Comment)
	if err != nil {
		return httpx.FromError(c, err, failCode)
	}
	return c.JSON(lead.ToResponse())
}

func (h *AdminHandler) moderateBroadcast(c *fiber.Ctx, failCode string, op func(leadID, adminID uint) (*models.Lead, error)) error {
	adminID, err := currentUser(c)
	if err != nil {
		return err
	}
	leadID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_lead_id", "Invalid lead ID")
	}
	lead, err := op(leadID, adminID)
	if err != nil {
		return httpx.FromError(c, err, failCode)
	}
	return c.JSON(lead.ToResponse())
}

func (h *AdminHandler) CreateGroup(c *fiber.Ctx) error {
	var in service.GroupInput
	if err := c.BodyParser(&in); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	group, err := h.groupService.Create(in)
	if err != nil {
		return httpx.FromError(c, err, "group_create_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(group.ToResponse(models.UnreadCounts{}))
}

func (h *AdminHandler) CreateGroupsBulk(c *fiber.Ctx) error {
	var req BulkGroupsRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	groups, err := h.groupService.CreateBulk(req.Groups)
	if err != nil {
		return httpx.FromError(c, err, "group_create_failed")
	}
	out := make([]models.GroupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, groups[i].ToResponse(models.UnreadCounts{}))
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *AdminHandler) UpdateGroup(c *fiber.Ctx) error {
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	var in service.GroupInput
	if err := c.BodyParser(&in); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	group, err := h.groupService.Update(groupID, in)
	if err != nil {
		return httpx.FromError(c, err, "group_update_failed")
	}
	return c.JSON(group.ToResponse(models.UnreadCounts{}))
}

func (h *AdminHandler) DeleteGroup(c *fiber.Ctx) error {
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	if err := h.groupService.Delete(groupID); err != nil {
		return httpx.FromError(c, err, "group_delete_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetGroupImage takes the upload from the "image" form field.
func (h *AdminHandler) SetGroupImage(c *fiber.Ctx) error {
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return httpx.BadRequest(c, "missing_image", "Missing image file")
	}
	f, err := fh.Open()
	if err != nil {
		return httpx.BadRequest(c, "invalid_image", "Unreadable image file")
	}
	defer f.Close()

	group, err := h.groupService.SetImage(c.UserContext(), groupID, f)
	if err != nil {
		return httpx.FromError(c, err, "group_image_failed")
	}
	return c.JSON(group.ToResponse(models.UnreadCounts{}))
}
