package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "requestId"
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 128
)

// RequestID attaches a request ID to context and response header. A caller-supplied ID is
// kept when it is short printable ASCII; otherwise a UUID is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext fetches the request ID stored by RequestID middleware.
func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
