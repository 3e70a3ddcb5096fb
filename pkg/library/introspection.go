package library

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/quire/pkg/store"
)

// State exposes internal state for observability.
type State struct {
	Notes     store.State `json:"notes"`
	Folders   store.State `json:"folders"`
	Summaries store.State `json:"summaries"`
	Following bool        `json:"following"`
	Storage   any         `json:"storage,omitempty"`
}

// State implements introspection.Introspectable.
func (l *Library) State() any {
	s := State{
		Notes:     l.Notes.State().(store.State),
		Folders:   l.Folders.State().(store.State),
		Summaries: l.Summaries.State().(store.State),
		Following: l.following.Load(),
	}
	if in, ok := l.storage.(introspection.Introspectable); ok {
		s.Storage = in.State()
	}
	return s
}

// ComponentType implements introspection.Component.
func (l *Library) ComponentType() string {
	return "library"
}

var _ introspection.Introspectable = (*Library)(nil)
var _ introspection.Component = (*Library)(nil)
