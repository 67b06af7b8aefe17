package session

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireSessionMiddleware enforces the identity precondition on the API
// surface. The gateway in front of this service validates the bearer token
// and forwards the caller principal; absence of either is rejected before
// any handler runs. Health endpoints stay open.
func RequireSessionMiddleware() gin.HandlerFunc {
	disabled := strings.EqualFold(os.Getenv("IPM_AUTH_DISABLED"), "true") || os.Getenv("IPM_AUTH_DISABLED") == "1"

	return func(c *gin.Context) {
		if disabled {
			if p := strings.TrimSpace(c.GetHeader("X-Caller-Principal")); p != "" {
				c.Request = c.Request.WithContext(WithSession(c.Request.Context(), Session{Principal: p}))
			}
			c.Next()
			return
		}
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" || p == "/metrics" {
			c.Next()
			return
		}
		if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/swagger") || p == "/docs" {
			auth := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(auth, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			principal := strings.TrimSpace(c.GetHeader("X-Caller-Principal"))
			if principal == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller principal"})
				return
			}
			c.Request = c.Request.WithContext(WithSession(c.Request.Context(), Session{Principal: principal}))
		}
		c.Next()
	}
}

// FromGin extracts the session placed by RequireSessionMiddleware.
func FromGin(c *gin.Context) (Session, bool) {
	if c == nil || c.Request == nil {
		return Session{}, false
	}
	return FromContext(c.Request.Context())
}
