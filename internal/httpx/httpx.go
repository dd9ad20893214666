package httpx

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	return ErrorWithDetails(c, status, code, message, nil)
}

func ErrorWithDetails(c *fiber.Ctx, status int, code string, message string, details map[string]string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func NotFound(c *fiber.Ctx) error {
	return Error(c, fiber.StatusNotFound, "not_found", "Not found")
}

func Conflict(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusConflict, code, message)
}

func ServiceUnavailable(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusServiceUnavailable, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// FromError maps service errors onto HTTP responses. Anything unrecognised
// is logged and reported as an opaque 500 with the given code.
func FromError(c *fiber.Ctx, err error, internalCode string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return ErrorWithDetails(c, fiber.StatusBadRequest, "validation_failed", "Validation failed", verr.Fields)
	case errors.Is(err, service.ErrNotFound):
		return NotFound(c)
	case errors.Is(err, service.ErrNotMember):
		return Forbidden(c, "not_member", err.Error())
	case errors.Is(err, service.ErrPremiumRequired):
		return Forbidden(c, "premium_required", err.Error())
	case errors.Is(err, service.ErrForbidden):
		return Forbidden(c, "forbidden", "Forbidden")
	case errors.Is(err, service.ErrInvalidTransition):
		return Conflict(c, "invalid_transition", err.Error())
	case errors.Is(err, service.ErrStorageNotConfigured):
		return ServiceUnavailable(c, "storage_not_configured", "Storage not configured")
	}
	logging.Error().Err(err).Str("path", c.Path()).Str("request_id", requestID(c)).Msg(internalCode)
	return Internal(c, internalCode)
}

func LocalUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Locals(key)
	if v == nil {
		return 0, fmt.Errorf("missing local %s", key)
	}
	u, ok := v.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid local %s", key)
	}
	return u, nil
}

// ParamUint parses a positive numeric route parameter.
func ParamUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(v), nil
}

// QueryUint64 returns 0 when the parameter is absent.
func QueryUint64(c *fiber.Ctx, name string) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
