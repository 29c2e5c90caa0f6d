package middleware

import (
	"strings"

	"github.com/clipdigest/core/internal/pkg/jwt"
	"github.com/clipdigest/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const ContextKeySubject = "auth_subject"

// Auth returns a middleware that enforces JWT bearer authentication.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := jwt.Parse(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}

// IsAuthenticated reports whether the current request carries a valid identity.
func IsAuthenticated(c *gin.Context) bool {
	_, ok := c.Get(ContextKeySubject)
	if ok {
		return true
	}
	_, err := jwt.Parse(extractToken(c))
	return err == nil
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}
