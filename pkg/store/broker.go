package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/quire/pkg/core"
)

// broker fans store events out to subscribers.
// Publishing never blocks: each subscriber owns a buffered channel and events
// that do not fit are dropped for that subscriber.
type broker struct {
	mu     sync.Mutex
	subs   map[chan core.Event]struct{}
	buffer int
	logger *slog.Logger
}

func newBroker(buffer int, logger *slog.Logger) *broker {
	return &broker{
		subs:   make(map[chan core.Event]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// subscribe registers a new subscriber. The channel is closed once ctx is done.
func (b *broker) subscribe(ctx context.Context) <-chan core.Event {
	ch := make(chan core.Event, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, ch)
		close(ch)
	}()

	return ch
}

func (b *broker) publish(e core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event dropped, subscriber buffer full", "event", e.String())
		}
	}
}

func (b *broker) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
