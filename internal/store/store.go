// Package store persists the history of answered questions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/warehouse-agent/internal/config"
	"github.com/sells-group/warehouse-agent/internal/db"
	"github.com/sells-group/warehouse-agent/internal/model"
)

// ErrNotFound is returned by GetRun for an unknown id.
var ErrNotFound = errors.New("store: run not found")

// ErrDisabled is returned by reads when run history is turned off.
var ErrDisabled = errors.New("store: run history is disabled (set store.driver)")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

const defaultListLimit = 20

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store records finished runs.
type Store interface {
	// SaveRun inserts r, assigning an id when r.ID is empty.
	SaveRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// DeleteBefore prunes runs created before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the configured backend, already migrated. Driver "none" (or
// empty) yields a Store that drops writes.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return Nop{}, nil
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: 2})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Nop is the Store used when history is disabled.
type Nop struct{}

func (Nop) SaveRun(context.Context, *model.Run) error { return nil }

func (Nop) GetRun(context.Context, string) (*model.Run, error) { return nil, ErrDisabled }

func (Nop) ListRuns(context.Context, RunFilter) ([]model.Run, error) { return nil, ErrDisabled }

func (Nop) DeleteBefore(context.Context, time.Time) (int, error) { return 0, ErrDisabled }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
