package fs

import (
	"sync"
	"time"

	"github.com/aretw0/quire/pkg/core"
)

// debouncer coalesces bursts of events per key. The first event of a burst
// arms a timer; events arriving before it fires replace the pending one, so
// only the latest event of the burst is delivered.
type debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	pending map[string]core.Event
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(wait time.Duration) *debouncer {
	return &debouncer{
		wait:    wait,
		pending: make(map[string]core.Event),
		timers:  make(map[string]*time.Timer),
	}
}

func (d *debouncer) add(e core.Event, deliver func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[e.Key] = e
	if _, armed := d.timers[e.Key]; armed {
		return
	}

	d.wg.Add(1)
	d.timers[e.Key] = time.AfterFunc(d.wait, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		latest := d.pending[e.Key]
		delete(d.pending, e.Key)
		delete(d.timers, e.Key)
		d.mu.Unlock()

		deliver(latest)
	})
}

// stopAndWait drops pending events and waits up to timeout for deliveries
// already in flight.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
