package respond

import (
	"github.com/gin-gonic/gin"

	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// AppError sends the response matching a classified error. Unclassified errors are reported
// as internal without their cause.
func AppError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	Error(c, apperr.Status(kind), string(kind), apperr.PublicMessage(err), nil)
}
