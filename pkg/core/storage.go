package core

import "context"

// Well-known storage keys.
const (
	KeyNotes       = "notes"
	KeyFolders     = "folders"
	KeySummaries   = "summaries"
	KeyUsers       = "users"
	KeyCurrentUser = "currentUser"
)

// Storage is the persistence primitive the stores are built on: an opaque
// key-value space holding one serialized blob per key.
// Adhering to this interface keeps the stores independent of the underlying
// medium (files, SQLite, memory).
type Storage interface {
	// Get returns the blob stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the blob stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// Initializer is implemented by storages that need setup before use
// (create directories, schema).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Watchable is implemented by storages that can report changes made outside
// of this process. Pattern is a glob matched against keys ("*" for all).
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Identity provides the currently authenticated owner.
// The stores only ever read it.
type Identity interface {
	// CurrentOwner returns the active owner identifier, or false when nobody is signed in.
	CurrentOwner() (string, bool)
}

// IdentityFunc adapts a function to the Identity interface.
type IdentityFunc func() (string, bool)

// CurrentOwner implements Identity.
func (f IdentityFunc) CurrentOwner() (string, bool) {
	return f()
}
