package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type LeadHandler struct {
	leadService *service.LeadService
}

func NewLeadHandler(leadService *service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// Submit accepts JSON, or multipart with the lead fields as form values and
// attachments under "documents".
func (h *LeadHandler) Submit(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}

	var fields service.LeadFields
	if err := c.BodyParser(&fields); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	docs, closeDocs, err := documentUploads(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_documents", err.Error())
	}
	defer closeDocs()

	lead, err := h.leadService.Submit(c.UserContext(), userID, groupID, fields, docs)
	if err != nil {
		return httpx.FromError(c, err, "lead_submit_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(lead.ToResponse())
}

func (h *LeadHandler) History(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	groupID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_group_id", "Invalid group ID")
	}
	afterSeq, err := httpx.QueryUint64(c, "after_seq")
	if err != nil {
		return httpx.BadRequest(c, "invalid_after_seq", "Invalid after_seq")
	}
	beforeSeq, err := httpx.QueryUint64(c, "before_seq")
	if err != nil {
		return httpx.BadRequest(c, "invalid_before_seq", "Invalid before_seq")
	}

	leads, err := h.leadService.History(userID, groupID, afterSeq, beforeSeq, c.QueryInt("limit", 0))
	if err != nil {
		return httpx.FromError(c, err, "lead_history_failed")
	}
	return c.JSON(leadResponses(leads))
}

func (h *LeadHandler) Mine(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	leads, err := h.leadService.MyLeads(userID, c.QueryInt("limit", 0))
	if err != nil {
		return httpx.FromError(c, err, "lead_list_failed")
	}
	return c.JSON(leadResponses(leads))
}

// Resend accepts a JSON ResendInput, or multipart with the same object as
// the "lead" form value plus new "documents".
func (h *LeadHandler) Resend(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	leadID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_lead_id", "Invalid lead ID")
	}

	var in service.ResendInput
	if raw := c.FormValue("lead"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return httpx.BadRequest(c, "invalid_body", "Invalid lead field")
		}
	} else if len(c.Body()) > 0 && !isMultipart(c) {
		if err := c.BodyParser(&in); err != nil {
			return httpx.BadRequest(c, "invalid_body", "Invalid request body")
		}
	}
	docs, closeDocs, err := documentUploads(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_documents", err.Error())
	}
	defer closeDocs()

	lead, err := h.leadService.Resend(c.UserContext(), leadID, userID, in, docs)
	if err != nil {
		return httpx.FromError(c, err, "lead_resend_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(lead.ToResponse())
}

func (h *LeadHandler) RequestBroadcast(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	leadID, err := httpx.ParamUint(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_lead_id", "Invalid lead ID")
	}
	lead, err := h.leadService.RequestBroadcast(leadID, userID)
	if err != nil {
		return httpx.FromError(c, err, "broadcast_request_failed")
	}
	return c.JSON(lead.ToResponse())
}

func (h *LeadHandler) Marquee(c *fiber.Ctx) error {
	leads, err := h.leadService.Marquee(c.QueryInt("limit", 0))
	if err != nil {
		return httpx.FromError(c, err, "marquee_failed")
	}
	return c.JSON(leadResponses(leads))
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// documentUploads opens every "documents" part of a multipart body. The
// returned func closes them.
func documentUploads(c *fiber.Ctx) ([]service.DocumentUpload, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, err
	}
	headers := form.File["documents"]
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	docs := make([]service.DocumentUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, noop, err
		}
		files = append(files, f)
		docs = append(docs, service.DocumentUpload{FileName: fh.Filename, Body: f})
	}
	return docs, closeAll, nil
}
