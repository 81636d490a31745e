package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/server/respond"
	"summarize-backend/internal/shared/telemetry"
)

// Recovery turns a panic into an internal error response. The panic value and stack are only
// logged.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"method":     c.Request.Method,
				"route":      c.FullPath(),
			}
			if userID := UserIDFromContext(c); userID != "" {
				fields["user_id"] = userID
			}
			telemetry.Error("http.panic", fields)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.AppError(c, apperr.New(apperr.KindInternal, "", fmt.Errorf("panic: %v", rec)))
		}()
		c.Next()
	}
}
