package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const tenantIDKey = "tenantId"

// TenantID copies the X-Tenant-Id header into the request context. Handlers
// that require a tenant reject requests where it is absent; the webhook and
// health endpoints do not use it.
func TenantID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader("X-Tenant-Id")); id != "" {
			c.Set(tenantIDKey, id)
		}
		c.Next()
	}
}

// TenantIDFromContext fetches the tenant ID stored by TenantID middleware.
func TenantIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(tenantIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
