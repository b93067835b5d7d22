// Package store provides the small key/value storage used by the bridge
// for approval grants, cached dApp metadata and the persisted session
// record.
package store

import "errors"

// ErrNotFound is returned by Bolt lookups for missing keys. Memory
// signals absence through its boolean return instead.
var ErrNotFound = errors.New("key not found")

// Store is a flat key/value namespace. Values are opaque bytes; callers
// own serialization and any expiry semantics recorded inside the value.
type Store interface {
	// Get retrieves the value for key. The second return is false if
	// the key is absent.
	Get(key string) ([]byte, bool)
	// Put creates or replaces the value for key.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key string) error
}
