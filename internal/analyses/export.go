package analyses

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/telemetry"
)

const (
	exportSheet     = "History"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportXLSX renders every record of the owner into a single-sheet workbook, newest first.
func (h *History) ExportXLSX(ctx context.Context, ownerID string) ([]byte, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "identity required", nil)
	}

	var recs []Record
	for offset := 0; ; offset += MaxHistoryLimit {
		page, err := h.Repo.ListByOwner(ctx, ownerID, MaxHistoryLimit, offset)
		if err != nil {
			return nil, apperr.New(apperr.KindInternal, "history could not be loaded", err)
		}
		recs = append(recs, page...)
		if len(page) < MaxHistoryLimit {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := []string{"ID", "File name", "Uploaded", "Summary", "Key points", "Actions"}
	for i, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, title)
	}

	for i, rec := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
		write(1, rec.ID)
		write(2, rec.FileName)
		write(3, rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		write(4, rec.Result.Summary)
		write(5, bulletList(rec.Result.KeyPoints))
		write(6, bulletList(rec.Result.Actions))
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 38)
	_ = f.SetColWidth(exportSheet, "B", "B", 28)
	_ = f.SetColWidth(exportSheet, "C", "C", 20)
	_ = f.SetColWidth(exportSheet, "D", "F", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	telemetry.Info("history.exported", map[string]any{"owner_id": ownerID, "records": len(recs)})
	return buf.Bytes(), nil
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
