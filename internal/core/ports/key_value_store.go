package ports

import "context"

// KeyValueStore is the durable client storage the session is persisted to.
// Set and Delete apply to all given keys atomically.
type KeyValueStore interface {
	// Get returns the values present for keys; absent keys are omitted.
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
