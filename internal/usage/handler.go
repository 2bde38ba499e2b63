package usage

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roofing-backend/internal/shared/server/middleware"
	"roofing-backend/internal/shared/server/respond"
)

// Handler serves the tenant's usage counters.
type Handler struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

// Current handles GET /api/v1/usage, returning the current month's counters.
// A month may be pinned with ?month=YYYY-MM.
func (h *Handler) Current(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	if tenantID == "" {
		respond.Error(c, http.StatusBadRequest, "missing_tenant", "X-Tenant-Id header is required", nil)
		return
	}

	at := time.Now().UTC()
	if month := c.Query("month"); month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_month", "month must be YYYY-MM", nil)
			return
		}
		at = parsed
	}

	u, err := h.Service.Current(c.Request.Context(), tenantID, at)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "usage_failed", "could not load usage", nil)
		return
	}
	respond.OK(c, u)
}
