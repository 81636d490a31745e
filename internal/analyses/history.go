package analyses

import (
	"context"
	"errors"
	"io"

	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/storage/object"
	"summarize-backend/internal/shared/telemetry"
	"summarize-backend/internal/shared/util"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// History serves an owner's saved analyses.
type History struct {
	Repo    Repo
	Archive object.ObjectStore
	// DiscloseForbidden reports records owned by someone else as forbidden instead of not found.
	DiscloseForbidden bool
}

// Page bounds a history listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default limit and rejects out of range values.
func (p Page) Normalize() (Page, error) {
	if p.Limit == 0 {
		p.Limit = DefaultHistoryLimit
	}
	if p.Limit < 0 || p.Limit > MaxHistoryLimit {
		return Page{}, apperr.Validation("limit must be between 1 and 100")
	}
	if p.Offset < 0 {
		return Page{}, apperr.Validation("offset must not be negative")
	}
	return p, nil
}

// List returns the owner's records, newest first.
func (h *History) List(ctx context.Context, ownerID string, page Page) ([]Record, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "identity required", nil)
	}
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	recs, err := h.Repo.ListByOwner(ctx, ownerID, page.Limit, page.Offset)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "history could not be loaded", err)
	}
	return recs, nil
}

// Get returns one of the owner's records.
func (h *History) Get(ctx context.Context, ownerID, id string) (Record, error) {
	if ownerID == "" {
		return Record{}, apperr.New(apperr.KindUnauthorized, "identity required", nil)
	}
	rec, err := h.Repo.GetForOwner(ctx, ownerID, id)
	if err != nil {
		return Record{}, h.mapLookup(err)
	}
	return rec, nil
}

// Delete removes one of the owner's records and its archived upload.
func (h *History) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return apperr.New(apperr.KindUnauthorized, "identity required", nil)
	}
	rec, err := h.Repo.DeleteForOwner(ctx, ownerID, id)
	if err != nil {
		return h.mapLookup(err)
	}
	switch {
	case rec.ArchiveKey == "" || h.Archive == nil:
	case !util.OwnsKey(ownerID, rec.ArchiveKey):
		telemetry.Warn("history.archive_key_foreign", map[string]any{
			"owner_id":    ownerID,
			"record_id":   id,
			"archive_key": rec.ArchiveKey,
		})
	default:
		if err := h.Archive.Delete(ctx, rec.ArchiveKey); err != nil {
			telemetry.Warn("history.archive_delete_failed", map[string]any{
				"owner_id":    ownerID,
				"record_id":   id,
				"archive_key": rec.ArchiveKey,
				"error":       err,
			})
		}
	}
	telemetry.Info("history.deleted", map[string]any{"owner_id": ownerID, "record_id": id})
	return nil
}

// OpenUpload streams the archived original of one of the owner's records. Records saved
// without an archive report not found.
func (h *History) OpenUpload(ctx context.Context, ownerID, id string) (Record, io.ReadCloser, error) {
	rec, err := h.Get(ctx, ownerID, id)
	if err != nil {
		return Record{}, nil, err
	}
	if rec.ArchiveKey == "" || h.Archive == nil || !util.OwnsKey(ownerID, rec.ArchiveKey) {
		return Record{}, nil, apperr.New(apperr.KindNotFound, "no archived upload for this analysis", nil)
	}
	rc, err := h.Archive.Open(ctx, rec.ArchiveKey)
	switch {
	case errors.Is(err, object.ErrNotFound):
		return Record{}, nil, apperr.New(apperr.KindNotFound, "no archived upload for this analysis", err)
	case err != nil:
		return Record{}, nil, apperr.New(apperr.KindInternal, "", err)
	}
	return rec, rc, nil
}

func (h *History) mapLookup(err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return err
	case apperr.KindForbidden:
		if h.DiscloseForbidden {
			return err
		}
		return errNotFound()
	default:
		return apperr.New(apperr.KindInternal, "history lookup failed", err)
	}
}
