package analyses

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/server/middleware"
	"summarize-backend/internal/shared/server/respond"
	"summarize-backend/internal/shared/util"
)

// multipartSlack covers the multipart envelope around the file part.
const multipartSlack = 64 << 10

// Handler wires HTTP handlers to the pipeline and the history service.
type Handler struct {
	Pipeline *Pipeline
	History  *History
}

// NewHandler constructs a Handler.
func NewHandler(pipeline *Pipeline, history *History) *Handler {
	return &Handler{Pipeline: pipeline, History: history}
}

// RegisterRoutes attaches the upload route to rg. It accepts anonymous callers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analysis/upload", h.upload)
}

// RegisterHistoryRoutes attaches the owner-scoped routes to rg, which must require an identity.
func (h *Handler) RegisterHistoryRoutes(rg *gin.RouterGroup) {
	rg.GET("/analysis/history", h.listHistory)
	rg.GET("/analysis/history/export", h.exportHistory)
	rg.GET("/analysis/:id", h.getRecord)
	rg.GET("/analysis/:id/file", h.downloadUpload)
	rg.DELETE("/analysis/:id", h.deleteRecord)
}

type analysisResponse struct {
	ID        string   `json:"id,omitempty"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
	Actions   []string `json:"actions"`
	Warning   string   `json:"warning,omitempty"`
}

type historyItem struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	UploadDate time.Time `json:"uploadDate"`
	Summary    string    `json:"summary"`
	KeyPoints  []string  `json:"keyPoints"`
	Actions    []string  `json:"actions"`
}

func toHistoryItem(rec Record) historyItem {
	return historyItem{
		ID:         rec.ID,
		FileName:   rec.FileName,
		UploadDate: rec.CreatedAt.UTC(),
		Summary:    rec.Result.Summary,
		KeyPoints:  rec.Result.KeyPoints,
		Actions:    rec.Result.Actions,
	}
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.Pipeline.Gateway.maxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.AppError(c, apperr.Validation(fmt.Sprintf("file exceeds the %d byte limit", limit)))
			return
		}
		respond.AppError(c, apperr.Validation("file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.AppError(c, apperr.Validation("unable to read file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respond.AppError(c, apperr.Validation("unable to read file"))
		return
	}

	name, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		name = "document.pdf"
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	out, err := h.Pipeline.Analyze(c.Request.Context(), Input{
		Upload: Upload{
			FileName:    name,
			ContentType: contentType,
			Size:        fileHeader.Size,
			Data:        data,
		},
		OwnerID:   middleware.UserIDFromContext(c),
		RequestID: middleware.RequestIDFromContext(c),
	})
	if err != nil {
		respond.AppError(c, err)
		return
	}

	if out.RecordID != "" {
		c.Set(middleware.RecordIDKey, out.RecordID)
	}
	respond.OK(c, analysisResponse{
		ID:        out.RecordID,
		Summary:   out.Result.Summary,
		KeyPoints: out.Result.KeyPoints,
		Actions:   out.Result.Actions,
		Warning:   out.Warning,
	})
}

func (h *Handler) listHistory(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		respond.AppError(c, err)
		return
	}

	recs, err := h.History.List(c.Request.Context(), middleware.UserIDFromContext(c), page)
	if err != nil {
		respond.AppError(c, err)
		return
	}

	items := make([]historyItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toHistoryItem(rec))
	}
	respond.OK(c, items)
}

func (h *Handler) exportHistory(c *gin.Context) {
	payload, err := h.History.ExportXLSX(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.AppError(c, err)
		return
	}
	respond.Attachment(c, "analysis-history.xlsx", xlsxContentType, payload)
}

func (h *Handler) getRecord(c *gin.Context) {
	c.Set(middleware.RecordIDKey, c.Param("id"))
	rec, err := h.History.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		respond.AppError(c, err)
		return
	}
	respond.OK(c, toHistoryItem(rec))
}

func (h *Handler) downloadUpload(c *gin.Context) {
	c.Set(middleware.RecordIDKey, c.Param("id"))
	rec, rc, err := h.History.OpenUpload(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		respond.AppError(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", rec.FileName),
	})
}

func (h *Handler) deleteRecord(c *gin.Context) {
	c.Set(middleware.RecordIDKey, c.Param("id"))
	if err := h.History.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.AppError(c, err)
		return
	}
	respond.NoContent(c)
}

func pageFromQuery(c *gin.Context) (Page, error) {
	var page Page
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Page{}, apperr.Validation("limit must be an integer")
		}
		page.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Page{}, apperr.Validation("offset must be an integer")
		}
		page.Offset = n
	}
	return page, nil
}
