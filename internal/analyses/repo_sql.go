package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sqlRepo holds the queries shared by the postgres and sqlite stores. The two differ only in
// how created_at is stored.
type sqlRepo struct {
	db       *sql.DB
	now      func() time.Time
	timeArg  func(time.Time) any
	scanTime func(any) (time.Time, error)
	// unlimited is the LIMIT argument meaning "all rows".
	unlimited any
}

const recordColumns = `id, owner_id, file_name, summary, key_points, actions, archive_key, created_at`

func (r *sqlRepo) Insert(ctx context.Context, rec Record) (Record, error) {
	rec = prepareInsert(rec, r.now())
	keyPoints, err := json.Marshal(rec.Result.KeyPoints)
	if err != nil {
		return Record{}, err
	}
	actions, err := json.Marshal(rec.Result.Actions)
	if err != nil {
		return Record{}, err
	}

	const query = `
INSERT INTO analysis_records (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.OwnerID,
		rec.FileName,
		rec.Result.Summary,
		string(keyPoints),
		string(actions),
		nullString(rec.ArchiveKey),
		r.timeArg(rec.CreatedAt),
	); err != nil {
		return Record{}, fmt.Errorf("insert analysis record: %w", err)
	}
	return rec, nil
}

func (r *sqlRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, error) {
	if offset < 0 {
		offset = 0
	}
	limitArg := r.unlimited
	if limit > 0 {
		limitArg = limit
	}
	const query = `
SELECT ` + recordColumns + `
FROM analysis_records
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, ownerID, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("list analysis records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *sqlRepo) GetForOwner(ctx context.Context, ownerID, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, errNotFound()
	}
	const query = `
SELECT ` + recordColumns + `
FROM analysis_records
WHERE id = $1`
	rec, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, errNotFound()
		}
		return Record{}, err
	}
	if rec.OwnerID != ownerID {
		return Record{}, errForbidden()
	}
	return rec, nil
}

func (r *sqlRepo) DeleteForOwner(ctx context.Context, ownerID, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, errNotFound()
	}
	const query = `
DELETE FROM analysis_records
WHERE id = $1 AND owner_id = $2
RETURNING ` + recordColumns
	rec, err := r.scan(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("delete analysis record: %w", err)
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM analysis_records WHERE id = $1`, id).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, errNotFound()
	case err != nil:
		return Record{}, err
	default:
		return Record{}, errForbidden()
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *sqlRepo) scan(row rowScanner) (Record, error) {
	var rec Record
	var keyPoints, actions string
	var archiveKey sql.NullString
	var createdAt any
	if err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.FileName,
		&rec.Result.Summary,
		&keyPoints,
		&actions,
		&archiveKey,
		&createdAt,
	); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(keyPoints), &rec.Result.KeyPoints); err != nil {
		return Record{}, fmt.Errorf("decode key_points: %w", err)
	}
	if err := json.Unmarshal([]byte(actions), &rec.Result.Actions); err != nil {
		return Record{}, fmt.Errorf("decode actions: %w", err)
	}
	if archiveKey.Valid {
		rec.ArchiveKey = archiveKey.String
	}
	t, err := r.scanTime(createdAt)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt = t.UTC()
	return rec, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
