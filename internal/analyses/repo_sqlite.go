package analyses

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRepo implements Repo using a local sqlite file. created_at is stored as unix
// nanoseconds so ordering stays exact.
type SQLiteRepo struct {
	sqlRepo
}

// NewSQLiteRepo constructs a SQLiteRepo on an open modernc sqlite *sql.DB.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{sqlRepo{
		db:        db,
		now:       time.Now,
		unlimited: int64(-1),
		timeArg:   func(t time.Time) any { return t.UnixNano() },
		scanTime: func(v any) (time.Time, error) {
			n, ok := v.(int64)
			if !ok {
				return time.Time{}, fmt.Errorf("created_at: unexpected type %T", v)
			}
			return time.Unix(0, n), nil
		},
	}}
}

var _ Repo = (*SQLiteRepo)(nil)
