package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"summarize-backend/internal/shared/apperr"
)

// Extractor turns a document buffer into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PDFExtractor extracts text from PDF documents page by page.
// Library used: github.com/ledongthuc/pdf.
type PDFExtractor struct {
	// MaxPages limits how many leading pages are read. Zero reads every page.
	MaxPages int
}

// Extract returns the non-empty text of data or an extraction error. Pages with text are
// prefixed with a "--- Page N ---" marker and separated by a blank line.
func (e PDFExtractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", apperr.New(apperr.KindExtraction, "document is empty", nil)
	}

	// The decoder panics on some malformed inputs instead of returning an error.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = apperr.New(apperr.KindExtraction, "document could not be decoded as PDF", fmt.Errorf("panic: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.New(apperr.KindExtraction, "document could not be decoded as PDF", err)
	}

	total := reader.NumPage()
	if total <= 0 {
		return "", apperr.New(apperr.KindExtraction, "document has no pages", nil)
	}
	if e.MaxPages > 0 && total > e.MaxPages {
		total = e.MaxPages
	}

	fonts := make(map[string]*pdf.Font)
	parts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		raw, err := page.GetPlainText(fonts)
		if err != nil {
			return "", apperr.New(apperr.KindExtraction, fmt.Sprintf("page %d could not be decoded", i), err)
		}
		if cleaned := cleanPage(raw); cleaned != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i, cleaned))
		}
	}

	if len(parts) == 0 {
		return "", apperr.New(apperr.KindExtraction, "document contains no extractable text", nil)
	}
	return strings.Join(parts, "\n\n"), nil
}

// cleanPage trims every line and drops blank ones.
func cleanPage(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
