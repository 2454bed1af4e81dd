package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// RepositoryManager owns a user store backend: its connection, its schema
// and the repositories bound to it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	// WithTx runs fn against a repository whose writes commit together.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the manager selected by cfg.StoreKind.
func Open(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StoreKind {
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.DatabaseDSN)
	case config.StoreBolt:
		return OpenBolt(cfg.BoltPath)
	case config.StoreMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.StoreKind)
	}
}
