// Package identity provides the current owner to the record stores: either a
// fixed owner or a local account registry persisted in the same storage as
// the records.
package identity

import "github.com/aretw0/quire/pkg/core"

// Static is a fixed owner. The empty Static is signed out.
type Static string

// CurrentOwner implements core.Identity.
func (s Static) CurrentOwner() (string, bool) {
	return string(s), s != ""
}

var _ core.Identity = Static("")
