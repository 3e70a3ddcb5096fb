package quire

import (
	"context"
	"log/slog"

	"github.com/aretw0/quire/internal/platform"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/identity"
	"github.com/aretw0/quire/pkg/library"
	"github.com/aretw0/quire/pkg/store"
)

// --- Types ---

type (
	Note     = core.Note
	Folder   = core.Folder
	Summary  = core.Summary
	Event    = core.Event
	Storage  = core.Storage
	Identity = core.Identity

	NoteInput    = store.NoteInput
	NotePatch    = store.NotePatch
	FolderInput  = store.FolderInput
	FolderPatch  = store.FolderPatch
	SummaryInput = store.SummaryInput
	SummaryPatch = store.SummaryPatch
	FolderNode   = store.FolderNode

	// Library is the composition of the three record stores.
	Library = library.Library
	// Instance is an opened data set (storage, accounts and library).
	Instance = platform.Instance
	// Config is the optional quire.yaml file.
	Config = platform.Config
)

// StaticIdentity returns an identity that is always signed in as owner.
func StaticIdentity(owner string) Identity {
	return identity.Static(owner)
}

// --- Configuration ---

// Option defines a functional option for configuring quire.
type Option = platform.Option

// WithLogger sets the logger for the storage, stores and accounts.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithAdapter selects the storage adapter by name ("fs", "sqlite" or "memory").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithStorage injects a custom storage.
func WithStorage(storage Storage) Option {
	return platform.WithStorage(storage)
}

// WithIdentity replaces the local account registry with a custom identity.
func WithIdentity(id Identity) Option {
	return platform.WithIdentity(id)
}

// WithCodec selects the collection encoding ("json" or "yaml").
func WithCodec(name string) Option {
	return platform.WithCodec(name)
}

// WithEventBuffer sets the per subscriber event buffer of every store.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithReadOnly opens the data set read-only.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithMustExist makes opening fail when the data directory does not exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox used when running via `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithOwnershipCheck rejects updates and deletes of records owned by someone else.
func WithOwnershipCheck(enabled bool) Option {
	return platform.WithOwnershipCheck(enabled)
}

// WithErrorHandler receives storage failures absorbed by the stores.
func WithErrorHandler(fn func(error)) Option {
	return platform.WithErrorHandler(fn)
}

// WithPasswordCost sets the bcrypt cost of the account registry.
func WithPasswordCost(cost int) Option {
	return platform.WithPasswordCost(cost)
}

// --- Factory ---

// New opens the data set at uri and loads it.
func New(ctx context.Context, uri string, opts ...Option) (*Instance, error) {
	return platform.New(ctx, uri, opts...)
}

// Open resolves and initializes only the storage of a data set.
func Open(ctx context.Context, uri string, opts ...Option) (Storage, error) {
	return platform.Open(ctx, uri, opts...)
}

// FindRoot walks upwards from dir looking for a .quire directory or quire.yaml.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}

// LoadConfig reads quire.yaml from root.
func LoadConfig(root string) (Config, error) {
	return platform.LoadConfig(root)
}
