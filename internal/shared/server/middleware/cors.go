package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods = "GET,POST,DELETE,OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Request-Id"
	// Browsers need these to read the export file name and rate limit state.
	corsExposeHeaders = "X-Request-Id, Content-Disposition, Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining"
)

// CORS answers preflight requests and sets CORS headers for allowed origins. "*" allows any
// origin; credentials are then not advertised.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]struct{})
	anyOrigin := false
	for _, o := range allowedOrigins {
		switch trimmed := strings.TrimRight(strings.TrimSpace(o), "/"); trimmed {
		case "":
		case "*":
			anyOrigin = true
		default:
			origins[trimmed] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			_, listed := origins[origin]
			if listed || anyOrigin {
				h := c.Writer.Header()
				h.Add("Vary", "Origin")
				if listed {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
				} else {
					h.Set("Access-Control-Allow-Origin", "*")
				}
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				h.Set("Access-Control-Max-Age", "600")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
