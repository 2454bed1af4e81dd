// Package session keeps small per-browser key/value state on the server,
// addressed by a signed id cookie.
package session

import (
	"context"
	"time"
)

// Store persists session data. Get returns common.ErrorNotFound for unknown
// or expired ids.
type Store interface {
	Get(ctx context.Context, id string) (map[string]string, error)
	Set(ctx context.Context, id string, data map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
