// Package store persists session selections and cached impact records.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trueprice/internal/model"
)

// Store defines the persistence interface for sessions and impact records.
type Store interface {
	// Selections
	SaveSelection(ctx context.Context, sessionID string, sel model.Selection) error
	LoadSelection(ctx context.Context, sessionID string) (*model.Selection, error)
	ListSessions(ctx context.Context, limit int) ([]string, error)
	DeleteSelection(ctx context.Context, sessionID string) error

	// Impact cache
	GetCachedImpact(ctx context.Context, key string) ([]byte, error)
	SetCachedImpact(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteExpiredImpacts(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and locates the backing database.
type Config struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// Open connects to the configured driver and runs migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres", "postgresql", "pgx":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
