package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/quire/pkg/core"
)

func TestWatcherSupervisorRestarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage := New(Config{Path: t.TempDir()})
	if err := storage.Initialize(ctx); err != nil {
		t.Fatalf("failed to init storage: %v", err)
	}

	events := make(chan core.Event)
	created := make(chan *watchWorker, 2)

	spec := watcherSpec(storage, "*", events, created)

	sup := supervisor.New("test-watcher", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("failed to start supervisor: %v", err)
	}

	first := waitForWorker(t, created, "first")
	waitForWatcher(t, storage, true)

	waitForWatcherInit(t, first)
	_ = first.watcher.Close()

	second := waitForWorker(t, created, "second")
	if first == second {
		t.Fatalf("expected supervisor to restart watcher with a new instance")
	}
	waitForWatcher(t, storage, true)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := sup.Stop(stopCtx); err != nil {
		t.Fatalf("failed to stop supervisor: %v", err)
	}
}

func TestWatcherSupervisorFiltersOwnWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage := New(Config{Path: t.TempDir()})
	if err := storage.Initialize(ctx); err != nil {
		t.Fatalf("failed to init storage: %v", err)
	}

	events := make(chan core.Event, 4)
	created := make(chan *watchWorker, 2)

	sup := supervisor.New("test-watcher", supervisor.StrategyOneForOne,
		watcherSpec(storage, core.KeyNotes, events, created))
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("failed to start supervisor: %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = sup.Stop(stopCtx)
	}()

	waitForWorker(t, created, "first")
	waitForWatcher(t, storage, true)

	// Written through the storage: recognised by digest and dropped.
	if err := storage.Set(ctx, core.KeyNotes, []byte(`[{"id":"own"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Outside the watched pattern.
	_ = os.WriteFile(filepath.Join(storage.Path, "folders.json"), []byte(`[]`), 0644)
	expectSilence(t, events, 200*time.Millisecond)

	_ = os.WriteFile(filepath.Join(storage.Path, "notes.json"), []byte(`[{"id":"external"}]`), 0644)
	e := waitEvent(t, events)
	if e.Key != core.KeyNotes {
		t.Errorf("expected key notes, got %q", e.Key)
	}
}

// watcherSpec runs watch workers for storage under a supervisor, reporting
// each new instance on created.
func watcherSpec(storage *Storage, pattern string, events chan core.Event, created chan<- *watchWorker) supervisor.Spec {
	return supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(storage, pattern, events)
			created <- w
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}
}

func waitForWorker(t *testing.T, ch <-chan *watchWorker, label string) *watchWorker {
	t.Helper()

	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s worker", label)
		return nil
	}
}

func waitForWatcherInit(t *testing.T, w *watchWorker) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if w.watcher != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher initialization")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func waitForWatcher(t *testing.T, storage *Storage, expected bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		state, ok := storage.State().(StorageState)
		if ok && state.WatcherActive == expected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher state = %v", expected)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
