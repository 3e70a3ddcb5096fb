package store

import (
	"context"
	"strings"
	"time"

	"github.com/aretw0/quire/pkg/core"
)

// Summaries is the markdown summary store, persisted under core.KeySummaries.
// Every update refreshes UpdatedAt.
type Summaries struct {
	*Store[core.Summary, *core.Summary]
}

// SummaryInput holds the caller supplied fields of a new summary.
type SummaryInput struct {
	Title    string
	Content  string
	FolderID *string
}

// SummaryPatch holds the fields to change on a summary. Nil fields are left as
// they are. A FolderID pointing at "" moves the summary out of its folder.
type SummaryPatch struct {
	Title    *string
	Content  *string
	FolderID *string
}

// NewSummaries creates the summary store.
func NewSummaries(storage core.Storage, identity core.Identity, opts ...Option) *Summaries {
	s := &Summaries{Store: New[core.Summary](core.KeySummaries, storage, identity, opts...)}
	s.touch = func(sum *core.Summary, now time.Time) {
		sum.UpdatedAt = now.UnixMilli()
	}
	return s
}

// Add creates a summary owned by the current identity.
func (s *Summaries) Add(ctx context.Context, in SummaryInput) (core.Summary, error) {
	return s.Insert(ctx, func(rec core.Record) (core.Summary, error) {
		return core.Summary{
			Record:    rec,
			Title:     strings.TrimSpace(in.Title),
			Content:   in.Content,
			FolderID:  core.Ref(core.Deref(in.FolderID)),
			UpdatedAt: rec.CreatedAt,
		}, nil
	})
}

// Update merges p into the summary with the given id and refreshes UpdatedAt.
func (s *Summaries) Update(ctx context.Context, id string, p SummaryPatch) (core.Summary, bool, error) {
	return s.Store.Update(ctx, id, func(sum *core.Summary) error {
		if p.Title != nil {
			sum.Title = strings.TrimSpace(*p.Title)
		}
		if p.Content != nil {
			sum.Content = *p.Content
		}
		if p.FolderID != nil {
			sum.FolderID = core.Ref(*p.FolderID)
		}
		return nil
	})
}

// InFolder returns the owned summaries filed into folderID.
func (s *Summaries) InFolder(folderID string) []core.Summary {
	return s.Filter(func(sum core.Summary) bool {
		return core.RefersTo(sum.FolderID, folderID)
	})
}

// Unfiled returns the owned summaries that are not in any folder.
func (s *Summaries) Unfiled() []core.Summary {
	return s.Filter(func(sum core.Summary) bool {
		return sum.FolderID == nil
	})
}
