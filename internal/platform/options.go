package platform

import (
	"log/slog"

	"github.com/aretw0/quire/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMemory = "memory"
)

// options holds the internal configuration for a quire instance.
type options struct {
	storage      core.Storage
	identity     core.Identity
	logger       *slog.Logger
	adapter      string
	codec        string
	eventBuffer  int
	readOnly     bool
	mustExist    bool
	forceTemp    bool
	devSafety    bool
	ownership    bool
	errorHandler func(error)
	passwordCost int
}

// Option defines a functional option for configuring quire.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter:   AdapterFS,
		codec:     "json",
		devSafety: true,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for the storage, stores and accounts.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAdapter selects the storage adapter by name ("fs", "sqlite" or "memory").
// Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithStorage injects a storage, skipping adapter resolution entirely.
func WithStorage(storage core.Storage) Option {
	return func(o *options) {
		o.storage = storage
	}
}

// WithIdentity replaces the local account registry with a custom identity
// provider (e.g. identity.Static for scripts and tests).
func WithIdentity(id core.Identity) Option {
	return func(o *options) {
		o.identity = id
	}
}

// WithCodec selects how collections are encoded: "json" (default) or "yaml".
// With the fs adapter it also picks the file extension.
func WithCodec(name string) Option {
	return func(o *options) {
		o.codec = name
	}
}

// WithEventBuffer sets the per subscriber event buffer of every store.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithReadOnly opens the data set read-only: writes fail with core.ErrReadOnly
// inside the storage (the stores log them) and the dev sandbox is bypassed.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithMustExist makes opening fail when the data directory does not exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true) the data directory is redirected to a temporary one.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithOwnershipCheck makes updates and deletes of records owned by someone
// else fail with core.ErrForbidden.
func WithOwnershipCheck(enabled bool) Option {
	return func(o *options) {
		o.ownership = enabled
	}
}

// WithErrorHandler receives storage failures absorbed by the stores and
// errors raised by the fs watcher.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithPasswordCost sets the bcrypt cost of the account registry.
func WithPasswordCost(cost int) Option {
	return func(o *options) {
		o.passwordCost = cost
	}
}
