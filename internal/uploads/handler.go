package uploads

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"roofing-backend/internal/queue"
	"roofing-backend/internal/shared/server/middleware"
	"roofing-backend/internal/shared/server/respond"
	"roofing-backend/internal/shared/storage/object"
	"roofing-backend/internal/shared/telemetry"
	"roofing-backend/internal/shared/util"
)

// maxUploadBytes caps a direct upload at 50 MB.
const maxUploadBytes = 50 << 20

// Handler accepts direct document uploads. The file lands in the inbox
// prefix of the object store and an intake job is enqueued; classification
// happens asynchronously.
type Handler struct {
	Store       object.Store
	Bucket      string
	InboxPrefix string
	Queue       queue.Client

	now func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(store object.Store, bucket, inboxPrefix string, queueClient queue.Client) *Handler {
	return &Handler{
		Store:       store,
		Bucket:      bucket,
		InboxPrefix: strings.Trim(inboxPrefix, "/"),
		Queue:       queueClient,
		now:         time.Now,
	}
}

type uploadResponse struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

// Upload handles POST /api/v1/uploads. Expects a multipart form with a
// "file" part and optional "project_id" and "note" fields.
func (h *Handler) Upload(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "missing_file", "multipart field 'file' is required", nil)
		return
	}
	if fileHeader.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the 50 MB limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "upload_failed", "could not read uploaded file", nil)
		return
	}
	defer file.Close()

	filename := util.SanitizeFileName(fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%s/%d-%s", h.InboxPrefix, tenantID, h.now().UnixMilli(), filename)
	ctx := c.Request.Context()

	size, err := h.Store.Put(ctx, key, contentType, map[string]string{"tenant-id": tenantID}, file)
	if err != nil {
		telemetry.Error("upload.store.failed", map[string]any{"tenant_id": tenantID, "key": key, "err": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "upload_failed", "could not store uploaded file", nil)
		return
	}

	job := queue.Message{
		Type:        queue.TypeS3Object,
		TenantID:    tenantID,
		ProjectID:   c.PostForm("project_id"),
		S3Bucket:    h.Bucket,
		S3Key:       key,
		Filename:    filename,
		MediaType:   contentType,
		MessageText: c.PostForm("note"),
	}
	if h.Queue == nil {
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "intake queue is not configured", nil)
		return
	}
	if err := h.Queue.Send(ctx, job); err != nil {
		telemetry.Error("upload.enqueue.failed", map[string]any{"tenant_id": tenantID, "key": key, "err": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "enqueue_failed", "file stored but intake could not be scheduled", nil)
		return
	}

	telemetry.Info("upload.accepted", map[string]any{
		"tenant_id":  tenantID,
		"key":        key,
		"size_bytes": size,
	})
	respond.JSON(c, http.StatusAccepted, uploadResponse{Key: key, Status: "queued"})
}
