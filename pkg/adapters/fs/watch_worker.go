package fs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/quire/pkg/core"
)

const debounceWindow = 50 * time.Millisecond

// Watch reports changes made to the stored keys by other processes. pattern is
// a glob over key names ("" or "*" for every key). Writes made through this
// Storage are not reported. The channel is closed once ctx is done.
func (s *Storage) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid watch pattern %q", core.ErrInvalidInput, pattern)
	}

	events := make(chan core.Event)
	w := newWatchWorker(s, pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := w.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		s.config.Logger.Error("watcher shutdown failed", "error", err)
	}))

	return events, nil
}

type watchWorker struct {
	*worker.BaseWorker
	storage   *Storage
	pattern   string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(s *Storage, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		storage:    s,
		pattern:    pattern,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.storage.Path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.storage.Path, err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(debounceWindow)
	w.storage.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"pattern":           w.pattern,
		}
	})
}

// eventType maps fsnotify operations to store events. Chmod is ignored.
func eventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return ""
}

// process filters and forwards one filesystem event. It reports whether the
// event was forwarded.
func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) bool {
	key, ok := w.storage.keyOf(event.Name)
	if !ok {
		return false
	}
	if match, _ := doublestar.Match(w.pattern, key); !match {
		return false
	}

	eType := eventType(event)
	if eType == "" {
		return false
	}
	if w.storage.isOwnChange(key, event.Name) {
		w.storage.config.Logger.Debug("ignoring own write", "key", key, "op", event.Op.String())
		return false
	}

	w.storage.config.Logger.Debug("external change", "key", key, "type", eType)
	w.send(ctx, core.Event{
		Type:      eType,
		Key:       key,
		Timestamp: time.Now().UnixMilli(),
	})
	return true
}

// send enqueues an event via the debouncer. Delivery gives up once ctx is done.
func (w *watchWorker) send(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			// events may be closed while the worker is being stopped
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) handleWatcherError(err error) {
	w.storage.config.Logger.Error("fsnotify error", "error", err)
	if w.storage.config.ErrorHandler != nil {
		w.storage.config.ErrorHandler(err)
	}
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.storage.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.storage.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// In-flight deliveries must finish before the events channel can be closed.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}
