package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/aretw0/quire/pkg/core"
)

// Folders is the folder store, persisted under core.KeyFolders.
// On top of the generic store it interprets ParentID as a tree (see hierarchy.go).
type Folders struct {
	*Store[core.Folder, *core.Folder]
}

// FolderInput holds the caller supplied fields of a new folder.
type FolderInput struct {
	Name     string
	Color    string // empty picks a random palette entry
	ParentID *string
}

// FolderPatch holds the fields to change on a folder. Nil fields are left as
// they are. A ParentID pointing at "" moves the folder to the root level.
type FolderPatch struct {
	Name     *string
	Color    *string
	ParentID *string
}

// NewFolders creates the folder store.
func NewFolders(storage core.Storage, identity core.Identity, opts ...Option) *Folders {
	return &Folders{Store: New[core.Folder](core.KeyFolders, storage, identity, opts...)}
}

// Add creates a folder owned by the current identity.
// A non-nil ParentID must name an existing folder of the same owner.
func (f *Folders) Add(ctx context.Context, in FolderInput) (core.Folder, error) {
	return f.Insert(ctx, func(rec core.Record) (core.Folder, error) {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return core.Folder{}, fmt.Errorf("%w: folder name is required", core.ErrInvalidInput)
		}

		parent := core.Ref(core.Deref(in.ParentID))
		if parent != nil {
			p, ok := f.Find(*parent)
			if !ok || p.Owner != rec.Owner {
				return core.Folder{}, fmt.Errorf("%w: parent folder %s not found", core.ErrInvalidInput, *parent)
			}
		}

		color := strings.TrimSpace(in.Color)
		if color == "" {
			color = RandomColor()
		}

		return core.Folder{
			Record:   rec,
			Name:     name,
			Color:    color,
			ParentID: parent,
		}, nil
	})
}

// Update renames, recolors or moves the folder with the given id.
// A new parent must be an existing folder of the same owner. Moving a folder
// under itself or one of its descendants fails with core.ErrFolderCycle.
func (f *Folders) Update(ctx context.Context, id string, p FolderPatch) (core.Folder, bool, error) {
	return f.Store.Update(ctx, id, func(folder *core.Folder) error {
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return fmt.Errorf("%w: folder name is required", core.ErrInvalidInput)
			}
			folder.Name = name
		}
		if p.Color != nil && strings.TrimSpace(*p.Color) != "" {
			folder.Color = strings.TrimSpace(*p.Color)
		}
		if p.ParentID != nil {
			parent := core.Ref(*p.ParentID)
			if parent != nil {
				if target, ok := f.Find(*parent); !ok || target.Owner != folder.Owner {
					return fmt.Errorf("%w: parent folder %s not found", core.ErrInvalidInput, *parent)
				}
				if f.wouldCycle(folder.ID, *parent) {
					return fmt.Errorf("%w: %s -> %s", core.ErrFolderCycle, folder.ID, *parent)
				}
			}
			folder.ParentID = parent
		}
		return nil
	})
}

// Move changes the parent of a folder. An empty parentID moves it to the root level.
func (f *Folders) Move(ctx context.Context, id, parentID string) (core.Folder, bool, error) {
	return f.Update(ctx, id, FolderPatch{ParentID: &parentID})
}

// wouldCycle reports whether making parentID the parent of id would close a loop,
// i.e. parentID is id itself or one of its descendants.
func (f *Folders) wouldCycle(id, parentID string) bool {
	byID := indexFolders(f.List())
	seen := make(map[string]bool)
	for cur := parentID; cur != ""; {
		if cur == id {
			return true
		}
		if seen[cur] {
			// Already broken chain that does not involve id.
			return false
		}
		seen[cur] = true
		next, ok := byID[cur]
		if !ok {
			return false
		}
		cur = core.Deref(next.ParentID)
	}
	return false
}

// Palette returns a copy of the fixed folder palette.
func (f *Folders) Palette() []string {
	return slices.Clone(core.FolderPalette)
}

// RandomColor picks a pseudo-random palette entry.
func RandomColor() string {
	return core.FolderPalette[rand.IntN(len(core.FolderPalette))]
}

func indexFolders(folders []core.Folder) map[string]core.Folder {
	byID := make(map[string]core.Folder, len(folders))
	for _, folder := range folders {
		byID[folder.ID] = folder
	}
	return byID
}
