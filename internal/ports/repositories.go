package ports

import (
	"context"
)

// KeyValueStore is the persistence backend: a flat string-to-string store.
// Get reports found=false with a nil error when the key has never been set.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// StoreInspector is implemented by backends that can report connection details
// for health checks.
type StoreInspector interface {
	Info() map[string]interface{}
}
