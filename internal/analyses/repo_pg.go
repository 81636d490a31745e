package analyses

import (
	"database/sql"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	sqlRepo
}

// NewPGRepo constructs a PGRepo on an open pgx-backed *sql.DB.
func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{sqlRepo{
		db:      db,
		now:     time.Now,
		timeArg: func(t time.Time) any { return t },
		scanTime: func(v any) (time.Time, error) {
			t, ok := v.(time.Time)
			if !ok {
				return time.Time{}, fmt.Errorf("created_at: unexpected type %T", v)
			}
			return t, nil
		},
	}}
}

var _ Repo = (*PGRepo)(nil)
