package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	bolt "go.etcd.io/bbolt"
)

// BoltRepositoryManager keeps users in a single bbolt file.
type BoltRepositoryManager struct {
	db   *bolt.DB
	repo *users.BoltRepository
}

// OpenBolt opens (or creates) the file at path. A file locked by another
// process fails after one second instead of blocking forever.
func OpenBolt(path string) (*BoltRepositoryManager, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt open: %w", err)
	}
	repo, err := users.NewBoltRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltRepositoryManager{db: db, repo: repo}, nil
}

// RunMigrations is a no-op: buckets are created on open.
func (m *BoltRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *BoltRepositoryManager) Users() users.Repository { return m.repo }

// WithTx hands fn the plain repository. Each repository call is its own
// bbolt transaction; Create re-checks uniqueness inside its transaction.
func (m *BoltRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	return fn(ctx, m.repo)
}

func (m *BoltRepositoryManager) Ping(ctx context.Context) error {
	return m.db.View(func(tx *bolt.Tx) error { return nil })
}

func (m *BoltRepositoryManager) Close() error {
	return m.db.Close()
}
