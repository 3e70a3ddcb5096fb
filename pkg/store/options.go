package store

import (
	"io"
	"log/slog"
	"time"
)

const defaultEventBuffer = 100

// config holds the internal configuration shared by every store kind.
type config struct {
	logger           *slog.Logger
	errorHandler     func(error)
	eventBuffer      int
	codec            Codec
	clock            func() time.Time
	enforceOwnership bool
}

// Option defines a functional option for configuring a store.
type Option func(*config)

func defaultConfig() *config {
	return &config{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		eventBuffer: defaultEventBuffer,
		codec:       JSON,
		clock:       time.Now,
	}
}

func buildConfig(opts []Option) *config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets the logger used to report swallowed storage failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithErrorHandler registers a callback receiving storage failures.
// Failures are still absorbed by the store; this only makes them observable.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.errorHandler = fn
	}
}

// WithEventBuffer sets the per-subscriber event buffer size.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.eventBuffer = size
		}
	}
}

// WithCodec selects how collections are serialized. Defaults to JSON.
func WithCodec(codec Codec) Option {
	return func(c *config) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithOwnershipCheck makes Update and Remove fail with core.ErrForbidden when the
// target record belongs to someone other than the current owner.
// Disabled by default: mutations look records up in the whole collection.
func WithOwnershipCheck(enabled bool) Option {
	return func(c *config) {
		c.enforceOwnership = enabled
	}
}
