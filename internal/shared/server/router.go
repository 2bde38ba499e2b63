package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roofing-backend/internal/documents"
	"roofing-backend/internal/projects"
	"roofing-backend/internal/shared/config"
	"roofing-backend/internal/shared/metrics"
	"roofing-backend/internal/shared/server/middleware"
	"roofing-backend/internal/shared/server/respond"
	"roofing-backend/internal/uploads"
	"roofing-backend/internal/usage"
	"roofing-backend/internal/webhook"
)

// RouterDeps carries the handlers the router wires up. Nil handlers skip
// their routes, which keeps partial configurations (no queue, no secrets)
// bootable in dev.
type RouterDeps struct {
	Config          config.Config
	WebhookHandler  *webhook.Handler
	UploadHandler   *uploads.Handler
	DocumentHandler *documents.Handler
	ProjectHandler  *projects.Handler
	UsageHandler    *usage.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.TenantID(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 10, Burst: 20},
				"UPLOAD":  {Rate: 2, Burst: 5},
				"WEBHOOK": {Rate: 50, Burst: 100},
			},
			GroupFor: func(c *gin.Context) string {
				path := c.FullPath()
				switch {
				case strings.HasPrefix(path, "/webhook"):
					return "WEBHOOK"
				case strings.HasSuffix(path, "/uploads"):
					return "UPLOAD"
				default:
					return "DEFAULT"
				}
			},
		}),
	)

	r.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	if deps.WebhookHandler != nil {
		r.GET("/webhook/whatsapp", deps.WebhookHandler.Verify)
		r.POST("/webhook/whatsapp", deps.WebhookHandler.Receive)
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.UploadHandler != nil {
		api.POST("/uploads", deps.UploadHandler.Upload)
	}
	if deps.DocumentHandler != nil {
		api.GET("/documents", deps.DocumentHandler.List)
		api.GET("/documents/:id", deps.DocumentHandler.Get)
		api.POST("/documents/:id/link", deps.DocumentHandler.Link)
	}
	if deps.ProjectHandler != nil {
		api.POST("/projects", deps.ProjectHandler.Create)
		api.GET("/projects", deps.ProjectHandler.List)
		api.GET("/projects/:id", deps.ProjectHandler.Get)
	}
	if deps.UsageHandler != nil {
		api.GET("/usage", deps.UsageHandler.Current)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
