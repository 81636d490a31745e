package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/shared/auth"
	"summarize-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Auth verifies an optional bearer token and stores the identity in context. Requests without
// an Authorization header continue anonymously; a header that does not verify is rejected.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(userIDKey, claims.Sub)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		c.Next()
	}
}

// RequireIdentity rejects requests that Auth did not identify.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}
