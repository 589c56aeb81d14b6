package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfscan/models"
)

// IdentityKey is the gin context key holding the caller's token.
const IdentityKey = "api_token"

// Auth returns static token authentication middleware.
//
// Supports two header styles:
//
//	Authorization: Bearer <token>
//	X-API-Key: <token>
//
// If tokens is empty, the middleware is a no-op (open access).
func Auth(tokens []string) gin.HandlerFunc {
	var valid [][]byte
	for _, t := range tokens {
		if t != "" {
			valid = append(valid, []byte(t))
		}
	}
	if len(valid) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			unauthorized(c, "missing token: provide Authorization: Bearer <token> or X-API-Key")
			return
		}
		if !matchesAny(token, valid) {
			unauthorized(c, "invalid token")
			return
		}

		c.Set(IdentityKey, token)
		c.Next()
	}
}

func matchesAny(token string, valid [][]byte) bool {
	got := []byte(token)
	ok := false
	for _, v := range valid {
		if subtle.ConstantTimeCompare(got, v) == 1 {
			ok = true
		}
	}
	return ok
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ScrapeResponse{
		Success:   false,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}

// extractToken tries Authorization: Bearer first, then X-API-Key.
func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(c.GetHeader("X-API-Key"))
}
