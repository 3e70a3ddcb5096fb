package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/store"
)

func newFolders(t *testing.T, storage core.Storage, id core.Identity) *store.Folders {
	t.Helper()
	folders := store.NewFolders(storage, id)
	folders.Load(context.Background())
	return folders
}

// chain creates names[0] > names[1] > ... and returns the created folders.
func chain(t *testing.T, folders *store.Folders, names ...string) []core.Folder {
	t.Helper()
	var out []core.Folder
	var parent *string
	for _, name := range names {
		f, err := folders.Add(context.Background(), store.FolderInput{Name: name, Color: "#4ECDC4", ParentID: parent})
		require.NoError(t, err)
		out = append(out, f)
		parent = &f.ID
	}
	return out
}

func TestFolders_Add(t *testing.T) {
	ctx := context.Background()
	folders := newFolders(t, memory.New(), &session{owner: "alice"})

	t.Run("Random Palette Color", func(t *testing.T) {
		f, err := folders.Add(ctx, store.FolderInput{Name: "inbox"})
		require.NoError(t, err)
		assert.Contains(t, core.FolderPalette, f.Color)
		assert.Nil(t, f.ParentID)
	})

	t.Run("Explicit Color", func(t *testing.T) {
		f, err := folders.Add(ctx, store.FolderInput{Name: "work", Color: "#000000"})
		require.NoError(t, err)
		assert.Equal(t, "#000000", f.Color)
	})

	t.Run("Name Required", func(t *testing.T) {
		_, err := folders.Add(ctx, store.FolderInput{Name: "  "})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("Unknown Parent", func(t *testing.T) {
		_, err := folders.Add(ctx, store.FolderInput{Name: "orphan", ParentID: core.Ref("nope")})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("Empty Parent Means Root", func(t *testing.T) {
		empty := ""
		f, err := folders.Add(ctx, store.FolderInput{Name: "top", ParentID: &empty})
		require.NoError(t, err)
		assert.Nil(t, f.ParentID)
	})
}

func TestFolders_ParentOfAnotherOwner(t *testing.T) {
	ctx := context.Background()
	sess := &session{owner: "alice"}
	folders := newFolders(t, memory.New(), sess)

	private, err := folders.Add(ctx, store.FolderInput{Name: "private"})
	require.NoError(t, err)

	sess.login("bob")
	_, err = folders.Add(ctx, store.FolderInput{Name: "intruder", ParentID: &private.ID})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestFolders_RootsAndChildren(t *testing.T) {
	sess := &session{owner: "alice"}
	folders := newFolders(t, memory.New(), sess)

	abc := chain(t, folders, "A", "B", "C")
	other := chain(t, folders, "D")

	roots := folders.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, abc[0].ID, roots[0].ID)
	assert.Equal(t, other[0].ID, roots[1].ID)

	children := folders.Children(abc[0].ID)
	require.Len(t, children, 1)
	assert.Equal(t, "B", children[0].Name)

	assert.Empty(t, folders.Children(abc[2].ID))
	assert.ElementsMatch(t, []string{abc[1].ID, abc[2].ID}, folders.Descendants(abc[0].ID))

	sess.login("bob")
	assert.Empty(t, folders.Roots(), "hierarchy views are owner scoped")
}

func TestFolders_AncestorPath(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	sess := &session{owner: "alice"}
	folders := newFolders(t, storage, sess)

	abc := chain(t, folders, "A", "B", "C")

	assert.Equal(t, []string{"A", "B"}, folders.AncestorPath(abc[2].ID))
	assert.Equal(t, []string{"A"}, folders.AncestorPath(abc[1].ID))
	assert.Empty(t, folders.AncestorPath(abc[0].ID))
	assert.Empty(t, folders.AncestorPath("missing"))

	t.Run("Broken Chain", func(t *testing.T) {
		_, err := folders.Store.Remove(ctx, abc[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, folders.AncestorPath(abc[2].ID))
	})
}

func TestFolders_CorruptedCycleTerminates(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	blob := `[
	  {"id":"x","owner":"alice","createdAt":1,"name":"X","color":"#FF6B6B","parentId":"y"},
	  {"id":"y","owner":"alice","createdAt":2,"name":"Y","color":"#FF6B6B","parentId":"x"},
	  {"id":"z","owner":"alice","createdAt":3,"name":"Z","color":"#FF6B6B","parentId":"z"}
	]`
	require.NoError(t, storage.Set(ctx, core.KeyFolders, []byte(blob)))
	folders := newFolders(t, storage, &session{owner: "alice"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, []string{"Y"}, folders.AncestorPath("x"))
		assert.Empty(t, folders.AncestorPath("z"))
		assert.NotEmpty(t, folders.Tree())
		_ = folders.Descendants("x")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hierarchy walk did not terminate on a cyclic chain")
	}
}

func TestFolders_MoveRejectsCycles(t *testing.T) {
	ctx := context.Background()
	folders := newFolders(t, memory.New(), &session{owner: "alice"})
	abc := chain(t, folders, "A", "B", "C")

	_, _, err := folders.Move(ctx, abc[0].ID, abc[2].ID)
	assert.ErrorIs(t, err, core.ErrFolderCycle)

	_, _, err = folders.Move(ctx, abc[1].ID, abc[1].ID)
	assert.ErrorIs(t, err, core.ErrFolderCycle)

	a, _ := folders.Get(abc[0].ID)
	assert.Nil(t, a.ParentID, "rejected move leaves the folder in place")

	moved, found, err := folders.Move(ctx, abc[2].ID, "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, moved.ParentID)
	assert.Len(t, folders.Roots(), 2)

	moved, _, err = folders.Move(ctx, abc[0].ID, abc[2].ID)
	require.NoError(t, err, "C is no longer below A")
	assert.Equal(t, abc[2].ID, core.Deref(moved.ParentID))
}

func TestFolders_MoveRejectsUnknownParent(t *testing.T) {
	ctx := context.Background()
	sess := &session{owner: "bob"}
	folders := newFolders(t, memory.New(), sess)

	bobs, err := folders.Add(ctx, store.FolderInput{Name: "bob's"})
	require.NoError(t, err)

	sess.login("alice")
	a, err := folders.Add(ctx, store.FolderInput{Name: "A"})
	require.NoError(t, err)

	t.Run("Missing Parent", func(t *testing.T) {
		ghost := "ghost"
		_, _, err := folders.Update(ctx, a.ID, store.FolderPatch{ParentID: &ghost})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("Parent Of Another Owner", func(t *testing.T) {
		_, _, err := folders.Move(ctx, a.ID, bobs.ID)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	got, ok := folders.Get(a.ID)
	require.True(t, ok)
	assert.Nil(t, got.ParentID, "rejected moves leave the folder at the root")
	assert.Len(t, folders.Roots(), 1)
}

func TestFolders_Update(t *testing.T) {
	ctx := context.Background()
	folders := newFolders(t, memory.New(), &session{owner: "alice"})
	f, err := folders.Add(ctx, store.FolderInput{Name: "old", Color: "#FF6B6B"})
	require.NoError(t, err)

	name := "new"
	blank := ""
	updated, found, err := folders.Update(ctx, f.ID, store.FolderPatch{Name: &name, Color: &blank})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, "#FF6B6B", updated.Color, "blank color keeps the current one")
}

func TestFolders_Tree(t *testing.T) {
	folders := newFolders(t, memory.New(), &session{owner: "alice"})
	abc := chain(t, folders, "A", "B", "C")
	chain(t, folders, "D")

	tree := folders.Tree()
	require.Len(t, tree, 2)
	assert.Equal(t, "A", tree[0].Folder.Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, abc[1].ID, tree[0].Children[0].Folder.ID)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "C", tree[0].Children[0].Children[0].Folder.Name)
	assert.Equal(t, "D", tree[1].Folder.Name)
}

func TestFolders_Palette(t *testing.T) {
	folders := newFolders(t, memory.New(), &session{owner: "alice"})
	palette := folders.Palette()
	require.Len(t, palette, 10)
	palette[0] = "mutated"
	assert.Equal(t, "#FF6B6B", core.FolderPalette[0])

	for i := 0; i < 50; i++ {
		assert.Contains(t, core.FolderPalette, store.RandomColor())
	}
}

func TestSummaries_UpdatedAt(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	summaries := store.NewSummaries(memory.New(), &session{owner: "alice"}, store.WithClock(clock.Now))
	summaries.Load(ctx)

	s, err := summaries.Add(ctx, store.SummaryInput{Title: " Week 1 ", Content: "# notes"})
	require.NoError(t, err)
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
	assert.Equal(t, "Week 1", s.Title)

	clock.Advance(5 * time.Second)
	content := "# revised"
	updated, found, err := summaries.Update(ctx, s.ID, store.SummaryPatch{Content: &content})
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, s.CreatedAt, updated.CreatedAt)
	assert.Equal(t, s.CreatedAt+5000, updated.UpdatedAt)
	assert.Greater(t, updated.UpdatedAt, updated.CreatedAt)
	assert.Equal(t, "# revised", updated.Content)

	t.Run("Empty Title Allowed", func(t *testing.T) {
		untitled, err := summaries.Add(ctx, store.SummaryInput{Content: "body"})
		require.NoError(t, err)
		assert.Empty(t, untitled.Title)
	})
}

func TestSummaries_FolderViews(t *testing.T) {
	ctx := context.Background()
	summaries := store.NewSummaries(memory.New(), &session{owner: "alice"})
	summaries.Load(ctx)

	_, err := summaries.Add(ctx, store.SummaryInput{Title: "filed", FolderID: core.Ref("f1")})
	require.NoError(t, err)
	_, err = summaries.Add(ctx, store.SummaryInput{Title: "loose"})
	require.NoError(t, err)

	filed := summaries.InFolder("f1")
	require.Len(t, filed, 1)
	assert.Equal(t, "filed", filed[0].Title)

	loose := summaries.Unfiled()
	require.Len(t, loose, 1)
	assert.Equal(t, "loose", loose[0].Title)
}
