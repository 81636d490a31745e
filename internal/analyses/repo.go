package analyses

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repo defines owner-scoped persistence of analysis records.
//
// GetForOwner and DeleteForOwner report a not_found error for unknown ids and a forbidden
// error for ids owned by someone else; they never return another owner's record.
type Repo interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, error)
	GetForOwner(ctx context.Context, ownerID, id string) (Record, error)
	DeleteForOwner(ctx context.Context, ownerID, id string) (Record, error)
}

// prepareInsert assigns the generated id and creation time.
func prepareInsert(rec Record, now time.Time) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	return cloneRecord(rec)
}
