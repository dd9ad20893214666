package handlers

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
)

type MediaHandler struct {
	s3          *storage.S3Storage
	leadService *service.LeadService
}

func NewMediaHandler(s3 *storage.S3Storage, leadService *service.LeadService) *MediaHandler {
	return &MediaHandler{s3: s3, leadService: leadService}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// Get streams a stored object. Group images are visible to any signed-in
// user; lead documents only to those allowed to see the lead.
func (h *MediaHandler) Get(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.ServiceUnavailable(c, "storage_not_configured", "Storage not configured")
	}
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	key, err := storage.SafeObjectKey(c.Params("*"))
	if err != nil {
		return httpx.NotFound(c)
	}

	cacheControl := "private, max-age=31536000, immutable"
	if strings.HasPrefix(key, storage.LeadDocumentPrefix+"/") {
		ok, err := h.leadService.CanViewDocument(userID, isAdmin(c), key)
		if errors.Is(err, service.ErrNotFound) || (err == nil && !ok) {
			// Unauthorised reads look like missing objects.
			return httpx.NotFound(c)
		}
		if err != nil {
			return httpx.FromError(c, err, "media_fetch_failed")
		}
		cacheControl = "private, no-cache"
	}

	obj, st, err := h.s3.GetObject(c.UserContext(), key)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c)
			}
		}
		logging.Error().Err(err).Str("key", key).Msg("media fetch failed")
		return httpx.Internal(c, "media_fetch_failed")
	}

	etag := st.ETag
	if etag != "" {
		c.Set("ETag", "\""+etag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(etag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	c.Set("Cache-Control", cacheControl)
	if st.ContentType != "" {
		c.Type(st.ContentType)
	} else {
		c.Set(fiber.HeaderContentType, "application/octet-stream")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()

		n, copyErr := io.Copy(w, obj)
		if copyErr == nil {
			copyErr = w.Flush()
		}
		if copyErr != nil {
			logging.Warn().Err(copyErr).Str("key", key).Int64("copied", n).Msg("media stream failed")
		}
	})
	return nil
}
