// Package store implements the record stores: an in-memory collection per
// entity kind, mirrored whole into one storage key after every mutation and
// read through owner-scoped views.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"

	"github.com/aretw0/quire/pkg/core"
)

// Entity is the constraint satisfied by pointers to the record kinds
// (*core.Note, *core.Folder, *core.Summary).
type Entity[T any] interface {
	*T
	Meta() *core.Record
	Clone() T
}

// Store keeps one entity kind in memory and persists the entire collection
// under a single storage key.
//
// Reads are served from memory and never touch storage. Mutations are applied
// in memory first, then the whole collection is written back before the call
// returns. A failed write is logged and reported to the error handler but the
// in-memory change is kept.
type Store[T any, P Entity[T]] struct {
	key      string
	storage  core.Storage
	identity core.Identity
	config   *config
	logger   *slog.Logger
	broker   *broker

	// touch runs after every update (e.g. refresh updatedAt).
	touch func(P, time.Time)

	mu    sync.RWMutex // guards items
	items []T

	// writeMu serializes mutations, including the persist that follows them.
	writeMu sync.Mutex

	loadMu sync.Mutex // serializes the initial load
	ready  chan struct{}
}

// New creates a store for the given storage key. The store starts in the
// loading state; call Load or Init to hydrate it.
func New[T any, P Entity[T]](key string, storage core.Storage, identity core.Identity, opts ...Option) *Store[T, P] {
	c := buildConfig(opts)
	logger := c.logger.With("store", key)
	return &Store[T, P]{
		key:      key,
		storage:  storage,
		identity: identity,
		config:   c,
		logger:   logger,
		broker:   newBroker(c.eventBuffer, logger),
		ready:    make(chan struct{}),
	}
}

// Key returns the storage key the collection is persisted under.
func (s *Store[T, P]) Key() string {
	return s.key
}

// Load reads the collection from storage. Only the first successful call
// performs the read; later calls (and concurrent ones) wait for it to finish.
// An absent key or a failed read leaves the store empty. A done ctx is not a
// failed read: the store stays loading and ctx.Err() is returned.
func (s *Store[T, P]) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if !s.Loading() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	items, err := s.read(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.fail("load", err)
		items = nil
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.logger.Debug("store loaded", "records", len(items))
	close(s.ready)
	return nil
}

// Init starts loading in the background and returns a channel closed once the
// store is ready.
func (s *Store[T, P]) Init(ctx context.Context) <-chan struct{} {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		if err := s.Load(ctx); err != nil {
			s.logger.Debug("load interrupted", "error", err)
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.fail("load", err)
	}))
	return s.ready
}

// Ready returns a channel closed once the initial load has completed.
func (s *Store[T, P]) Ready() <-chan struct{} {
	return s.ready
}

// Loading reports whether the initial load has not completed yet.
func (s *Store[T, P]) Loading() bool {
	select {
	case <-s.ready:
		return false
	default:
		return true
	}
}

// Reload replaces the in-memory collection with what is currently stored.
// Used when storage was changed from outside. A failed read keeps memory as is.
func (s *Store[T, P]) Reload(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	items, err := s.read(ctx)
	if err != nil {
		s.fail("reload", err)
		return err
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.publish(core.EventReload, "")
	return nil
}

// --- Reads ---

// List returns a copy of the whole collection, regardless of owner.
func (s *Store[T, P]) List() []T {
	return s.filter(func(T) bool { return true })
}

// ListOwned returns the records of the current owner, in insertion order.
// It is empty when nobody is signed in or the store is still loading.
func (s *Store[T, P]) ListOwned() []T {
	owner, ok := s.owner()
	if !ok {
		return []T{}
	}
	return s.filter(func(item T) bool {
		return P(&item).Meta().Owner == owner
	})
}

// Filter returns the records of the current owner matching fn.
func (s *Store[T, P]) Filter(fn func(T) bool) []T {
	owner, ok := s.owner()
	if !ok {
		return []T{}
	}
	return s.filter(func(item T) bool {
		return P(&item).Meta().Owner == owner && fn(item)
	})
}

// Get returns the record with the given id if it belongs to the current owner.
func (s *Store[T, P]) Get(id string) (T, bool) {
	item, ok := s.Find(id)
	if !ok {
		return item, false
	}
	owner, signedIn := s.owner()
	if !signedIn || P(&item).Meta().Owner != owner {
		var zero T
		return zero, false
	}
	return item, true
}

// Find returns the record with the given id, regardless of owner.
func (s *Store[T, P]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return P(&s.items[i]).Clone(), true
	}
	var zero T
	return zero, false
}

// Len returns the size of the whole collection.
func (s *Store[T, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// --- Mutations ---

// Insert creates a record owned by the current identity. build receives the
// freshly assigned identity fields and returns the record to store; whatever it
// puts in the embedded core.Record is overwritten with them.
func (s *Store[T, P]) Insert(ctx context.Context, build func(rec core.Record) (T, error)) (T, error) {
	var zero T

	owner, ok := s.owner()
	if !ok {
		return zero, core.ErrUnauthenticated
	}

	if err := s.Load(ctx); err != nil {
		return zero, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec := core.Record{
		ID:        uuid.NewString(),
		Owner:     owner,
		CreatedAt: s.config.clock().UnixMilli(),
	}

	item, err := build(rec)
	if err != nil {
		return zero, err
	}
	*P(&item).Meta() = rec

	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(core.EventCreate, rec.ID)
	return P(&item).Clone(), nil
}

// Update applies mutate to the record with the given id.
// The lookup spans the whole collection. A missing id is a no-op reported as
// false. If mutate fails the record is left untouched. The identity fields are
// restored after mutate, so they can never change.
func (s *Store[T, P]) Update(ctx context.Context, id string, mutate func(P) error) (T, bool, error) {
	var zero T

	if err := s.Load(ctx); err != nil {
		return zero, false, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Only writers modify items and writeMu is held, so reading without mu is safe here.
	i := s.indexOf(id)
	if i < 0 {
		return zero, false, nil
	}
	if err := s.authorize(s.items[i]); err != nil {
		return zero, false, err
	}

	item := P(&s.items[i]).Clone()
	if err := s.apply(&item, mutate); err != nil {
		return zero, false, err
	}

	s.mu.Lock()
	s.items[i] = item
	s.mu.Unlock()

	s.persist(ctx)
	s.publish(core.EventModify, id)
	return P(&item).Clone(), true, nil
}

// UpdateWhere applies mutate to every record matching match, regardless of
// owner, and persists once. It returns the number of records changed.
func (s *Store[T, P]) UpdateWhere(ctx context.Context, match func(T) bool, mutate func(P) error) (int, error) {
	if err := s.Load(ctx); err != nil {
		return 0, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	updated := make([]T, len(s.items))
	copy(updated, s.items)

	var changed []string
	for i := range updated {
		if !match(updated[i]) {
			continue
		}
		item := P(&updated[i]).Clone()
		if err := s.apply(&item, mutate); err != nil {
			return 0, err
		}
		updated[i] = item
		changed = append(changed, P(&item).Meta().ID)
	}

	if len(changed) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	s.items = updated
	s.mu.Unlock()

	s.persist(ctx)
	for _, id := range changed {
		s.publish(core.EventModify, id)
	}
	return len(changed), nil
}

// Remove deletes the record with the given id. Removing an absent id is a
// no-op reported as false; the collection is persisted either way.
func (s *Store[T, P]) Remove(ctx context.Context, id string) (bool, error) {
	if err := s.Load(ctx); err != nil {
		return false, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	i := s.indexOf(id)
	if i >= 0 {
		if err := s.authorize(s.items[i]); err != nil {
			return false, err
		}
		s.mu.Lock()
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		s.mu.Unlock()
	}

	s.persist(ctx)
	if i < 0 {
		return false, nil
	}
	s.publish(core.EventDelete, id)
	return true, nil
}

// RemoveWhere deletes every record matching match, regardless of owner, and
// persists once. It returns the number of records removed. Nothing is removed
// when ctx is done before the store has loaded.
func (s *Store[T, P]) RemoveWhere(ctx context.Context, match func(T) bool) int {
	if err := s.Load(ctx); err != nil {
		s.logger.Warn("remove skipped, store not loaded", "error", err)
		return 0
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	kept := make([]T, 0, len(s.items))
	var removed []string
	for _, item := range s.items {
		if match(item) {
			removed = append(removed, P(&item).Meta().ID)
			continue
		}
		kept = append(kept, item)
	}

	s.mu.Lock()
	s.items = kept
	s.mu.Unlock()

	s.persist(ctx)
	for _, id := range removed {
		s.publish(core.EventDelete, id)
	}
	return len(removed)
}

// ClearForOwner deletes every record of owner. Used by account cleanup.
func (s *Store[T, P]) ClearForOwner(ctx context.Context, owner string) int {
	return s.RemoveWhere(ctx, func(item T) bool {
		return P(&item).Meta().Owner == owner
	})
}

// Authorize reports whether the current owner may mutate the record with the
// given id. Absent records are always allowed (mutating them is a no-op).
func (s *Store[T, P]) Authorize(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.authorize(s.items[i])
	}
	return nil
}

// Subscribe returns a channel receiving one event per successful mutation.
// The channel is closed when ctx is done. Slow subscribers lose events rather
// than blocking the store.
func (s *Store[T, P]) Subscribe(ctx context.Context) <-chan core.Event {
	return s.broker.subscribe(ctx)
}

// --- internals ---

func (s *Store[T, P]) owner() (string, bool) {
	if s.identity == nil {
		return "", false
	}
	owner, ok := s.identity.CurrentOwner()
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

func (s *Store[T, P]) authorize(item T) error {
	if !s.config.enforceOwnership {
		return nil
	}
	owner, ok := s.owner()
	if !ok {
		return core.ErrUnauthenticated
	}
	if P(&item).Meta().Owner != owner {
		return core.ErrForbidden
	}
	return nil
}

// apply runs mutate on item, keeping the identity fields and running the touch hook.
func (s *Store[T, P]) apply(item *T, mutate func(P) error) error {
	p := P(item)
	rec := *p.Meta()
	if err := mutate(p); err != nil {
		return err
	}
	*p.Meta() = rec
	if s.touch != nil {
		s.touch(p, s.config.clock())
	}
	return nil
}

func (s *Store[T, P]) filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for i := range s.items {
		if keep(s.items[i]) {
			out = append(out, P(&s.items[i]).Clone())
		}
	}
	return out
}

// indexOf must be called with mu held or by the writer holding writeMu.
func (s *Store[T, P]) indexOf(id string) int {
	for i := range s.items {
		if P(&s.items[i]).Meta().ID == id {
			return i
		}
	}
	return -1
}

func (s *Store[T, P]) read(ctx context.Context) ([]T, error) {
	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, core.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []T
	if err := s.config.codec.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.key, err)
	}
	return items, nil
}

// persist writes the whole collection. Must be called with writeMu held.
func (s *Store[T, P]) persist(ctx context.Context) {
	s.mu.RLock()
	items := s.items
	if items == nil {
		items = []T{}
	}
	data, err := s.config.codec.Marshal(items)
	s.mu.RUnlock()

	if err != nil {
		s.fail("encode", err)
		return
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.fail("persist", err)
		return
	}
	s.logger.Debug("collection persisted", "records", len(items), "bytes", len(data))
}

func (s *Store[T, P]) publish(t core.EventType, id string) {
	s.broker.publish(core.Event{
		Type:      t,
		Key:       s.key,
		ID:        id,
		Timestamp: s.config.clock().UnixMilli(),
	})
}

func (s *Store[T, P]) fail(op string, err error) {
	s.logger.Error("storage failure", "op", op, "error", err)
	if s.config.errorHandler != nil {
		s.config.errorHandler(fmt.Errorf("%s %s: %w", op, s.key, err))
	}
}
