// Package library composes the note, folder and summary stores over one
// storage and implements the operations spanning more than one of them.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/store"
)

// ErrNotWatchable is returned by Follow when the storage cannot report changes.
var ErrNotWatchable = errors.New("storage does not support watching")

// Library holds the three record stores of one data set.
type Library struct {
	Notes     *store.Notes
	Folders   *store.Folders
	Summaries *store.Summaries

	storage   core.Storage
	logger    *slog.Logger
	following atomic.Bool
}

// Option configures a Library.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	storeOpts []store.Option
}

// WithLogger sets the logger of the library and its stores.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStoreOptions passes options to every store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// New builds the stores over storage. Call Init (or Load on each store)
// before reading.
func New(storage core.Storage, identity core.Identity, opts ...Option) *Library {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	storeOpts := append([]store.Option{store.WithLogger(o.logger)}, o.storeOpts...)

	return &Library{
		Notes:     store.NewNotes(storage, identity, storeOpts...),
		Folders:   store.NewFolders(storage, identity, storeOpts...),
		Summaries: store.NewSummaries(storage, identity, storeOpts...),
		storage:   storage,
		logger:    o.logger,
	}
}

// Init loads the three stores concurrently and waits for all of them.
func (l *Library) Init(ctx context.Context) error {
	ready := []<-chan struct{}{
		l.Notes.Init(ctx),
		l.Folders.Init(ctx),
		l.Summaries.Init(ctx),
	}
	for _, ch := range ready {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.logger.Debug("library loaded",
		"notes", l.Notes.Len(),
		"folders", l.Folders.Len(),
		"summaries", l.Summaries.Len(),
	)
	return nil
}

// Loading reports whether any store is still loading.
func (l *Library) Loading() bool {
	return l.Notes.Loading() || l.Folders.Loading() || l.Summaries.Loading()
}

// CascadeResult counts what DeleteFolderCascadeSafe touched.
type CascadeResult struct {
	Notes     int  // notes moved out of the folder
	Summaries int  // summaries moved out of the folder
	Children  int  // subfolders promoted to the root level
	Removed   bool // whether the folder existed
}

// DeleteFolderCascadeSafe deletes a folder without leaving anything pointing
// at it: its notes and summaries become unfiled and its direct subfolders move
// to the root level, then the folder itself is removed. Each store persists on
// its own; a failure part way leaves the earlier steps applied.
func (l *Library) DeleteFolderCascadeSafe(ctx context.Context, folderID string) (CascadeResult, error) {
	var res CascadeResult
	if err := l.Folders.Authorize(folderID); err != nil {
		return res, err
	}

	var err error
	if res.Notes, err = l.Notes.UpdateWhere(ctx,
		func(n core.Note) bool { return core.RefersTo(n.FolderID, folderID) },
		func(n *core.Note) error { n.FolderID = nil; return nil },
	); err != nil {
		return res, fmt.Errorf("failed to unfile notes: %w", err)
	}

	if res.Summaries, err = l.Summaries.UpdateWhere(ctx,
		func(s core.Summary) bool { return core.RefersTo(s.FolderID, folderID) },
		func(s *core.Summary) error { s.FolderID = nil; return nil },
	); err != nil {
		return res, fmt.Errorf("failed to unfile summaries: %w", err)
	}

	if res.Children, err = l.Folders.UpdateWhere(ctx,
		func(f core.Folder) bool { return core.RefersTo(f.ParentID, folderID) },
		func(f *core.Folder) error { f.ParentID = nil; return nil },
	); err != nil {
		return res, fmt.Errorf("failed to promote subfolders: %w", err)
	}

	if res.Removed, err = l.Folders.Remove(ctx, folderID); err != nil {
		return res, fmt.Errorf("failed to remove folder: %w", err)
	}

	l.logger.Info("folder deleted",
		"folder", folderID,
		"notes", res.Notes,
		"summaries", res.Summaries,
		"children", res.Children,
	)
	return res, nil
}

// ResolveFolder returns the owned folder ref points at. A nil or dangling
// reference resolves to no folder.
func (l *Library) ResolveFolder(ref *string) (core.Folder, bool) {
	if ref == nil {
		return core.Folder{}, false
	}
	return l.Folders.Get(*ref)
}

// ClearResult counts what ClearOwner removed.
type ClearResult struct {
	Notes     int
	Folders   int
	Summaries int
}

// ClearOwner removes every record of owner from the three stores.
func (l *Library) ClearOwner(ctx context.Context, owner string) ClearResult {
	return ClearResult{
		Notes:     l.Notes.ClearForOwner(ctx, owner),
		Folders:   l.Folders.ClearForOwner(ctx, owner),
		Summaries: l.Summaries.ClearForOwner(ctx, owner),
	}
}

// Contents is what a folder holds. For the root level Folder is zero and
// Notes/Summaries are the unfiled records.
type Contents struct {
	Folder     core.Folder
	Path       []string
	Subfolders []core.Folder
	Notes      []core.Note
	Summaries  []core.Summary
}

// Contents lists a folder of the current owner. An empty folderID lists the
// root level. It reports false when the folder does not exist.
func (l *Library) Contents(folderID string) (Contents, bool) {
	if folderID == "" {
		return Contents{
			Path:       []string{},
			Subfolders: l.Folders.Roots(),
			Notes:      l.Notes.Unfiled(),
			Summaries:  l.Summaries.Unfiled(),
		}, true
	}

	folder, ok := l.Folders.Get(folderID)
	if !ok {
		return Contents{}, false
	}
	return Contents{
		Folder:     folder,
		Path:       l.Folders.AncestorPath(folderID),
		Subfolders: l.Folders.Children(folderID),
		Notes:      l.Notes.InFolder(folderID),
		Summaries:  l.Summaries.InFolder(folderID),
	}, true
}

// Watch merges the change feeds of the three stores. The channel is closed
// once ctx is done.
func (l *Library) Watch(ctx context.Context) <-chan core.Event {
	feeds := []<-chan core.Event{
		l.Notes.Subscribe(ctx),
		l.Folders.Subscribe(ctx),
		l.Summaries.Subscribe(ctx),
	}

	out := make(chan core.Event)
	var wg sync.WaitGroup
	for _, feed := range feeds {
		wg.Add(1)
		go func(feed <-chan core.Event) {
			defer wg.Done()
			for e := range feed {
				select {
				case out <- e:
				case <-ctx.Done():
				}
			}
		}(feed)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Follow reloads a store whenever its key is changed by another process.
// It requires a storage implementing core.Watchable and runs until ctx is done.
func (l *Library) Follow(ctx context.Context) error {
	watchable, ok := l.storage.(core.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	if !l.following.CompareAndSwap(false, true) {
		return fmt.Errorf("library is already following its storage")
	}

	events, err := watchable.Watch(ctx, "*")
	if err != nil {
		l.following.Store(false)
		return fmt.Errorf("failed to watch storage: %w", err)
	}

	reloaders := map[string]func(context.Context) error{
		l.Notes.Key():     l.Notes.Reload,
		l.Folders.Key():   l.Folders.Reload,
		l.Summaries.Key(): l.Summaries.Reload,
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer l.following.Store(false)
		for e := range events {
			reload, ok := reloaders[e.Key]
			if !ok {
				continue
			}
			l.logger.Info("external change, reloading", "event", e.String())
			if err := reload(ctx); err != nil {
				l.logger.Warn("reload failed", "key", e.Key, "error", err)
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		l.logger.Error("follow loop failed", "error", err)
	}))
	return nil
}
