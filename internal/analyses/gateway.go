package analyses

import (
	"fmt"
	"mime"
	"strings"

	"summarize-backend/internal/shared/apperr"
)

// DefaultMaxUploadBytes bounds uploads when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

var pdfMediaTypes = map[string]struct{}{
	"application/pdf":   {},
	"application/x-pdf": {},
}

// Gateway validates uploads before any extraction work is done.
type Gateway struct {
	MaxBytes int64
}

func (g Gateway) maxBytes() int64 {
	if g.MaxBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return g.MaxBytes
}

// Validate rejects missing, non-PDF and oversized uploads with a validation error.
func (g Gateway) Validate(u Upload) error {
	if u.Data == nil && u.Size == 0 && u.FileName == "" {
		return apperr.Validation("file is required")
	}
	mediaType, _, err := mime.ParseMediaType(u.ContentType)
	if err != nil {
		return apperr.Validation("file content type is missing or invalid")
	}
	if _, ok := pdfMediaTypes[strings.ToLower(mediaType)]; !ok {
		return apperr.Validation(fmt.Sprintf("file must be a PDF, got %s", mediaType))
	}
	size := u.Size
	if n := int64(len(u.Data)); n > size {
		size = n
	}
	if size > g.maxBytes() {
		return apperr.Validation(fmt.Sprintf("file exceeds the %d byte limit", g.maxBytes()))
	}
	if size == 0 {
		return apperr.Validation("file is empty")
	}
	return nil
}
