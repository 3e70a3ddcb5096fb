package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/quire/pkg/core"
)

// Notes is the note store, persisted under core.KeyNotes.
type Notes struct {
	*Store[core.Note, *core.Note]
}

// NoteInput holds the caller supplied fields of a new note.
type NoteInput struct {
	Title       string
	Description string
	Status      core.NoteStatus // defaults to core.StatusNew
	FolderID    *string
}

// NotePatch holds the fields to change on a note. Nil fields are left as they are.
// A FolderID pointing at "" moves the note out of its folder.
type NotePatch struct {
	Title       *string
	Description *string
	Status      *core.NoteStatus
	FolderID    *string
}

// NewNotes creates the note store.
func NewNotes(storage core.Storage, identity core.Identity, opts ...Option) *Notes {
	return &Notes{Store: New[core.Note](core.KeyNotes, storage, identity, opts...)}
}

// Add creates a note owned by the current identity.
func (n *Notes) Add(ctx context.Context, in NoteInput) (core.Note, error) {
	return n.Insert(ctx, func(rec core.Record) (core.Note, error) {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return core.Note{}, fmt.Errorf("%w: note title is required", core.ErrInvalidInput)
		}
		status := in.Status
		if status == "" {
			status = core.StatusNew
		}
		if !status.Valid() {
			return core.Note{}, fmt.Errorf("%w: unknown note status %q", core.ErrInvalidInput, status)
		}
		return core.Note{
			Record:      rec,
			Title:       title,
			Description: in.Description,
			Status:      status,
			FolderID:    core.Ref(core.Deref(in.FolderID)),
		}, nil
	})
}

// Update merges p into the note with the given id.
func (n *Notes) Update(ctx context.Context, id string, p NotePatch) (core.Note, bool, error) {
	return n.Store.Update(ctx, id, func(note *core.Note) error {
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return fmt.Errorf("%w: note title is required", core.ErrInvalidInput)
			}
			note.Title = title
		}
		if p.Description != nil {
			note.Description = *p.Description
		}
		if p.Status != nil {
			if !p.Status.Valid() {
				return fmt.Errorf("%w: unknown note status %q", core.ErrInvalidInput, *p.Status)
			}
			note.Status = *p.Status
		}
		if p.FolderID != nil {
			note.FolderID = core.Ref(*p.FolderID)
		}
		return nil
	})
}

// InFolder returns the owned notes filed into folderID.
func (n *Notes) InFolder(folderID string) []core.Note {
	return n.Filter(func(note core.Note) bool {
		return core.RefersTo(note.FolderID, folderID)
	})
}

// Unfiled returns the owned notes that are not in any folder.
func (n *Notes) Unfiled() []core.Note {
	return n.Filter(func(note core.Note) bool {
		return note.FolderID == nil
	})
}

// Search returns the owned notes whose title or description contains query,
// ignoring case, newest first. A non-nil folderID restricts the result to that
// folder. An empty query matches every note.
func (n *Notes) Search(query string, folderID *string) []core.Note {
	q := strings.ToLower(query)
	found := n.Filter(func(note core.Note) bool {
		if folderID != nil && !core.RefersTo(note.FolderID, *folderID) {
			return false
		}
		return strings.Contains(strings.ToLower(note.Title), q) ||
			strings.Contains(strings.ToLower(note.Description), q)
	})
	slices.SortStableFunc(found, func(a, b core.Note) int {
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})
	return found
}
