package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service reports liveness and the state of the history database.
type Service struct {
	DB *sql.DB
}

// NewService constructs a health service. db may be nil when history is kept in memory.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status returns the health payload and whether the service is ready to serve.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	if s == nil || s.DB == nil {
		return map[string]any{"ok": true, "database": "none"}, true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return map[string]any{"ok": false, "database": "down"}, false
	}
	return map[string]any{"ok": true, "database": "up"}, true
}
