package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roofing-backend/internal/shared/server/middleware"
	"roofing-backend/internal/shared/server/respond"
)

// Handler serves tenant-scoped document reads and project linking.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// List handles GET /api/v1/documents.
func (h *Handler) List(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required", nil)
		return
	}

	limit := parseIntDefault(c.Query("limit"), 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := parseIntDefault(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	docs, err := h.Repo.ListByTenant(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "list_failed", "could not list documents", nil)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	respond.OK(c, gin.H{"documents": docs})
}

// Get handles GET /api/v1/documents/:id.
func (h *Handler) Get(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required", nil)
		return
	}

	doc, err := h.Repo.GetByID(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "get_failed", "could not load document", nil)
		return
	}
	respond.OK(c, doc)
}

type linkRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
}

// Link handles POST /api/v1/documents/:id/link, filing an unfiled document.
func (h *Handler) Link(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required", nil)
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "projectId is required", nil)
		return
	}

	err := h.Repo.LinkProject(c.Request.Context(), tenantID, c.Param("id"), req.ProjectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "link_failed", "could not link document", nil)
		return
	}
	respond.OK(c, gin.H{"status": "linked"})
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
