// Package lifecycle exposes quire change feeds as lifecycle sources, so a
// host application can route them through its own event router.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quire/pkg/core"
)

// Feed is anything producing a stream of store events until ctx is done,
// such as a library or a watchable storage wrapper.
type Feed interface {
	Watch(ctx context.Context) (<-chan core.Event, error)
}

// FeedFunc adapts a function to Feed.
type FeedFunc func(ctx context.Context) (<-chan core.Event, error)

// Watch implements Feed.
func (f FeedFunc) Watch(ctx context.Context) (<-chan core.Event, error) {
	return f(ctx)
}

type feedSource struct {
	feed Feed
	keys map[string]bool
	out  chan lifecycle.Event
}

// NewSource creates a lifecycle.Source emitting the events of feed.
// When keys are given only events for those storage keys are forwarded.
func NewSource(feed Feed, keys ...string) lifecycle.Source {
	s := &feedSource{
		feed: feed,
		out:  make(chan lifecycle.Event),
	}
	if len(keys) > 0 {
		s.keys = make(map[string]bool, len(keys))
		for _, k := range keys {
			s.keys[k] = true
		}
	}
	return s
}

func (s *feedSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *feedSource) Start(ctx context.Context) error {
	events, err := s.feed.Watch(ctx)
	if err != nil {
		close(s.out)
		return fmt.Errorf("failed to start feed: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if s.keys != nil && !s.keys[e.Key] {
					continue
				}
				// core.Event satisfies lifecycle.Event through String().
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
