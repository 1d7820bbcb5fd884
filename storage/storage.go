// Package storage persists small per-browser key/value namespaces: the auth
// token, the serialised user and display preferences.
package storage

import "context"

// Store is one namespace of persisted string values.
type Store interface {
	// Get returns the value of key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// Backend hands out namespaces over one underlying store.
type Backend interface {
	Namespace(name string) Store
	Close() error
}

// Backend kinds accepted by Open.
const (
	KindMemory  = "memory"
	KindSQLite  = "sqlite"
	KindKeyring = "keyring"
)
