// Package core holds the domain entities of quire and the contracts the
// record stores are built against (storage, identity, events).
package core

import (
	"fmt"
	"time"
)

// Record is the shape shared by every entity kind.
// ID, Owner and CreatedAt are assigned by the store on creation and never change.
type Record struct {
	ID        string `json:"id" yaml:"id"`
	Owner     string `json:"owner" yaml:"owner"`
	CreatedAt int64  `json:"createdAt" yaml:"createdAt"` // milliseconds since epoch
}

// Meta returns the embedded record. Entity kinds embedding Record get it promoted,
// which is what lets a generic store reach the identity fields.
func (r *Record) Meta() *Record {
	return r
}

// Created returns CreatedAt as a time.Time.
func (r Record) Created() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// NoteStatus is an informational lifecycle tag. No transitions are enforced.
type NoteStatus string

const (
	StatusNew        NoteStatus = "new"
	StatusInProgress NoteStatus = "in-progress"
	StatusDone       NoteStatus = "done"
)

// Valid reports whether s is one of the known tags.
func (s NoteStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseNoteStatus converts user input into a NoteStatus.
func ParseNoteStatus(s string) (NoteStatus, error) {
	st := NoteStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown note status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// Note is a short titled entry, optionally filed into a folder.
type Note struct {
	Record      `yaml:",inline"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Status      NoteStatus `json:"status" yaml:"status"`
	FolderID    *string    `json:"folderId" yaml:"folderId"` // nil = unfiled
}

// Folder groups notes, summaries and other folders.
type Folder struct {
	Record   `yaml:",inline"`
	Name     string  `json:"name" yaml:"name"`
	Color    string  `json:"color" yaml:"color"`
	ParentID *string `json:"parentId" yaml:"parentId"` // nil = root level
}

// Summary is a markdown document, optionally filed into a folder.
type Summary struct {
	Record    `yaml:",inline"`
	Title     string  `json:"title" yaml:"title"`
	Content   string  `json:"content" yaml:"content"`
	FolderID  *string `json:"folderId" yaml:"folderId"`
	UpdatedAt int64   `json:"updatedAt" yaml:"updatedAt"`
}

// FolderPalette is the fixed set of colors a folder can be given by default.
var FolderPalette = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#96CEB4",
	"#FFEAA7",
	"#DDA0DD",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E9",
}

// Ref returns a reference to id, or nil when id is empty.
func Ref(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// Deref returns the referenced id, or "" for a nil reference.
func Deref(ref *string) string {
	if ref == nil {
		return ""
	}
	return *ref
}

// RefersTo reports whether ref points at id.
func RefersTo(ref *string, id string) bool {
	return ref != nil && *ref == id
}

// EventType represents the type of change in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
	EventReload EventType = "RELOAD"
)

// Event represents a change in a store, or in the underlying storage when
// emitted by a watcher. Key is the storage key of the collection ("notes", ...).
type Event struct {
	Type      EventType
	Key       string
	ID        string
	Timestamp int64 // Unix milliseconds
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e Event) String() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s", e.Type, e.Key)
	}
	return fmt.Sprintf("%s %s/%s", e.Type, e.Key, e.ID)
}

func cloneRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := *ref
	return &v
}

// Clone returns a copy of n that shares no references with it.
func (n Note) Clone() Note {
	n.FolderID = cloneRef(n.FolderID)
	return n
}

// Clone returns a copy of f that shares no references with it.
func (f Folder) Clone() Folder {
	f.ParentID = cloneRef(f.ParentID)
	return f
}

// Clone returns a copy of s that shares no references with it.
func (s Summary) Clone() Summary {
	s.FolderID = cloneRef(s.FolderID)
	return s
}
