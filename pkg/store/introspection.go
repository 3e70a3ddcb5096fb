package store

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/quire/pkg/core"
)

// State exposes internal state for observability.
type State struct {
	Key              string `json:"key"`
	Records          int    `json:"records"`
	Loading          bool   `json:"loading"`
	Subscribers      int    `json:"subscribers"`
	Codec            string `json:"codec"`
	OwnershipChecked bool   `json:"ownership_checked"`
}

// State implements introspection.Introspectable.
func (s *Store[T, P]) State() any {
	return s.snapshot()
}

func (s *Store[T, P]) snapshot() State {
	return State{
		Key:              s.key,
		Records:          s.Len(),
		Loading:          s.Loading(),
		Subscribers:      s.broker.len(),
		Codec:            s.config.codec.Name(),
		OwnershipChecked: s.config.enforceOwnership,
	}
}

// ComponentType implements introspection.Component.
func (s *Store[T, P]) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store[core.Note, *core.Note])(nil)
var _ introspection.Component = (*Store[core.Note, *core.Note])(nil)
