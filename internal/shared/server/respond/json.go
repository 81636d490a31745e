package respond

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// NoContent writes an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// Attachment sends data as a download named fileName.
func Attachment(c *gin.Context, fileName, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, data)
}
