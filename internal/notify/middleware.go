package notify

import (
	"github.com/gin-gonic/gin"
)

func InjectClientMiddleware(c *Client) gin.HandlerFunc {
	return func(g *gin.Context) {
		if c != nil && g.Request != nil {
			g.Request = g.Request.WithContext(WithClient(g.Request.Context(), c))
		}
		g.Next()
	}
}
