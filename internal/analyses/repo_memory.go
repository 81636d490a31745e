package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores records in memory and is safe for concurrent use.
// Each owner has its own bucket and lock, so unrelated owners never contend.
type MemoryRepo struct {
	owners sync.Map // ownerID -> *ownerBucket
	owner  sync.Map // record id -> ownerID
	now    func() time.Time
}

type ownerBucket struct {
	mu      sync.RWMutex
	records []Record // insertion order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{now: time.Now}
}

func (r *MemoryRepo) bucket(ownerID string) *ownerBucket {
	if b, ok := r.owners.Load(ownerID); ok {
		return b.(*ownerBucket)
	}
	b, _ := r.owners.LoadOrStore(ownerID, &ownerBucket{})
	return b.(*ownerBucket)
}

// Insert stores the record with a generated id and timestamp.
func (r *MemoryRepo) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec = prepareInsert(rec, r.now())

	b := r.bucket(rec.OwnerID)
	b.mu.Lock()
	b.records = append(b.records, rec)
	b.mu.Unlock()
	r.owner.Store(rec.ID, rec.OwnerID)
	return cloneRecord(rec), nil
}

// ListByOwner returns records for an owner, newest first, with limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	b, ok := r.owners.Load(ownerID)
	if !ok {
		return []Record{}, nil
	}
	bucket := b.(*ownerBucket)
	bucket.mu.RLock()
	records := make([]Record, 0, len(bucket.records))
	for i := len(bucket.records) - 1; i >= 0; i-- {
		records = append(records, cloneRecord(bucket.records[i]))
	}
	bucket.mu.RUnlock()

	// Reverse insertion order already breaks timestamp ties newest first.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if offset >= len(records) {
		return []Record{}, nil
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return records[offset:end], nil
}

// GetForOwner returns one record owned by ownerID.
func (r *MemoryRepo) GetForOwner(ctx context.Context, ownerID, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := r.checkOwner(ownerID, id); err != nil {
		return Record{}, err
	}
	bucket := r.bucket(ownerID)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()
	for _, rec := range bucket.records {
		if rec.ID == id {
			return cloneRecord(rec), nil
		}
	}
	return Record{}, errNotFound()
}

// DeleteForOwner removes one record owned by ownerID and returns it.
func (r *MemoryRepo) DeleteForOwner(ctx context.Context, ownerID, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := r.checkOwner(ownerID, id); err != nil {
		return Record{}, err
	}
	bucket := r.bucket(ownerID)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	for i, rec := range bucket.records {
		if rec.ID == id {
			bucket.records = append(bucket.records[:i:i], bucket.records[i+1:]...)
			r.owner.Delete(id)
			return rec, nil
		}
	}
	return Record{}, errNotFound()
}

func (r *MemoryRepo) checkOwner(ownerID, id string) error {
	owner, ok := r.owner.Load(id)
	if !ok {
		return errNotFound()
	}
	if owner.(string) != ownerID {
		return errForbidden()
	}
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
