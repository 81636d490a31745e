package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		fields := map[string]any{
			"request_id":  reqID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if userID := UserIDFromContext(c); userID != "" {
			fields["user_id"] = userID
		}
		if recordID := c.GetString(RecordIDKey); recordID != "" {
			fields["record_id"] = recordID
		}
		telemetry.Info("request.complete", fields)
	}
}

// RecordIDKey is set by handlers that create or touch a history record.
const RecordIDKey = "recordId"
