package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/introspection"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/identity"
	"github.com/aretw0/quire/pkg/library"
	"github.com/aretw0/quire/pkg/store"
)

// Instance is an opened data set: its storage, the account registry and the
// loaded library.
type Instance struct {
	*library.Library

	Storage core.Storage
	// Accounts is nil when a custom identity was injected with WithIdentity.
	Accounts *identity.Accounts
}

// New opens the data set at uri, restores the session and loads every store.
//
//	inst, err := quire.New(ctx, "./data", quire.WithAdapter("sqlite"))
func New(ctx context.Context, uri string, opts ...Option) (*Instance, error) {
	o := buildOptions(opts)
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	codec, err := store.CodecByName(o.codec)
	if err != nil {
		return nil, err
	}

	storage, err := open(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	inst := &Instance{Storage: storage}

	id := o.identity
	if id == nil {
		accountOpts := []identity.Option{identity.WithLogger(o.logger)}
		if o.passwordCost > 0 {
			accountOpts = append(accountOpts, identity.WithCost(o.passwordCost))
		}
		inst.Accounts = identity.NewAccounts(storage, accountOpts...)
		if err := inst.Accounts.Load(ctx); err != nil {
			_ = inst.Close()
			return nil, fmt.Errorf("failed to load accounts: %w", err)
		}
		id = inst.Accounts
	}

	inst.Library = library.New(storage, id,
		library.WithLogger(o.logger),
		library.WithStoreOptions(
			store.WithCodec(codec),
			store.WithEventBuffer(o.eventBuffer),
			store.WithOwnershipCheck(o.ownership),
			store.WithErrorHandler(o.errorHandler),
		),
	)
	if err := inst.Library.Init(ctx); err != nil {
		_ = inst.Close()
		return nil, err
	}

	return inst, nil
}

// Close releases the storage when it holds resources (e.g. a database handle).
func (i *Instance) Close() error {
	if c, ok := i.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DeleteAccount removes the account of login together with every record it owns.
func (i *Instance) DeleteAccount(ctx context.Context, login, password string) (library.ClearResult, error) {
	if i.Accounts == nil {
		return library.ClearResult{}, errors.New("no account registry configured")
	}
	if err := i.Accounts.Delete(ctx, login, password); err != nil {
		return library.ClearResult{}, err
	}
	return i.ClearOwner(ctx, login), nil
}

// InstanceState exposes internal state for observability.
type InstanceState struct {
	Library  any `json:"library"`
	Accounts any `json:"accounts,omitempty"`
}

// State implements introspection.Introspectable.
func (i *Instance) State() any {
	s := InstanceState{Library: i.Library.State()}
	if i.Accounts != nil {
		s.Accounts = i.Accounts.State()
	}
	return s
}

// ComponentType implements introspection.Component.
func (i *Instance) ComponentType() string {
	return "quire"
}

var _ introspection.Introspectable = (*Instance)(nil)
var _ introspection.Component = (*Instance)(nil)
