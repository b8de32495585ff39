package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service reports whether the process and its database are usable, plus the
// providers it was started with.
type Service struct {
	DB        *sql.DB
	Providers map[string]string
}

// NewService constructs a new health service.
func NewService(db *sql.DB, providers map[string]string) *Service {
	return &Service{DB: db, Providers: providers}
}

// Status returns the health payload. ok is false only when a configured
// database does not answer.
func (s *Service) Status(ctx context.Context) map[string]any {
	out := map[string]any{"ok": true}
	for k, v := range s.Providers {
		out[k] = v
	}
	if s.DB == nil {
		out["database"] = "disabled"
		return out
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		out["ok"] = false
		out["database"] = "unavailable"
		return out
	}
	out["database"] = "ok"
	return out
}
