package projects

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roofing-backend/internal/shared/server/middleware"
	"roofing-backend/internal/shared/server/respond"
)

// Handler serves tenant-scoped project reads and creation.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

type createRequest struct {
	Name         string `json:"name" binding:"required"`
	Address      string `json:"address"`
	CustomerName string `json:"customerName"`
}

// Create handles POST /api/v1/projects.
func (h *Handler) Create(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required", nil)
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "name is required", nil)
		return
	}

	project := Project{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Name:         req.Name,
		Address:      req.Address,
		CustomerName: req.CustomerName,
		Status:       "active",
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Repo.Create(c.Request.Context(), project); err != nil {
		respond.Error(c, http.StatusInternalServerError, "create_failed", "could not create project", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, project)
}

// List handles GET /api/v1/projects.
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

	projects, err := h.Repo.ListByTenant(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "list_failed", "could not list projects", nil)
		return
	}
	if projects == nil {
		projects = []Project{}
	}
	respond.OK(c, gin.H{"projects": projects})
}

// Get handles GET /api/v1/projects/:id.
func (h *Handler) Get(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required", nil)
		return
	}

	project, err := h.Repo.GetByID(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "get_failed", "could not load project", nil)
		return
	}
	respond.OK(c, project)
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
