package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/store"
)

// session is a switchable identity.
type session struct {
	mu    sync.Mutex
	owner string
}

func (s *session) CurrentOwner() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, s.owner != ""
}

func (s *session) login(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newNotes(t *testing.T, storage core.Storage, id core.Identity, opts ...store.Option) *store.Notes {
	t.Helper()
	notes := store.NewNotes(storage, id, opts...)
	notes.Load(context.Background())
	return notes
}

func TestStore_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	sess := &session{}
	notes := newNotes(t, memory.New(), sess)

	sess.login("alice")
	_, err := notes.Add(ctx, store.NoteInput{Title: "a1"})
	require.NoError(t, err)
	_, err = notes.Add(ctx, store.NoteInput{Title: "a2"})
	require.NoError(t, err)

	sess.login("bob")
	_, err = notes.Add(ctx, store.NoteInput{Title: "b1"})
	require.NoError(t, err)

	owned := notes.ListOwned()
	require.Len(t, owned, 1)
	assert.Equal(t, "b1", owned[0].Title)

	sess.login("alice")
	owned = notes.ListOwned()
	require.Len(t, owned, 2)
	for _, n := range owned {
		assert.Equal(t, "alice", n.Owner)
	}

	assert.Len(t, notes.List(), 3, "List is unscoped")

	sess.login("")
	assert.Empty(t, notes.ListOwned())
}

func TestStore_AddAssignsIdentityFields(t *testing.T) {
	ctx := context.Background()
	sess := &session{owner: "alice"}
	notes := newNotes(t, memory.New(), sess)

	before := time.Now().UnixMilli()
	first, err := notes.Add(ctx, store.NoteInput{Title: "  first  ", Description: "d"})
	require.NoError(t, err)
	second, err := notes.Add(ctx, store.NoteInput{Title: "second"})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "alice", first.Owner)
	assert.GreaterOrEqual(t, first.CreatedAt, before)
	assert.LessOrEqual(t, first.CreatedAt, time.Now().UnixMilli())
	assert.Equal(t, "first", first.Title, "title is trimmed")
	assert.Equal(t, core.StatusNew, first.Status)
	assert.Nil(t, first.FolderID)
}

func TestStore_AddValidation(t *testing.T) {
	ctx := context.Background()
	notes := newNotes(t, memory.New(), &session{owner: "alice"})

	_, err := notes.Add(ctx, store.NoteInput{Title: "   "})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = notes.Add(ctx, store.NoteInput{Title: "x", Status: "archived"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Equal(t, 0, notes.Len())
}

func TestStore_UnauthenticatedAddFails(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	sess := &session{}

	notes := newNotes(t, storage, sess)
	folders := store.NewFolders(storage, sess)
	summaries := store.NewSummaries(storage, sess)

	_, err := notes.Add(ctx, store.NoteInput{Title: "x", Description: "y"})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = folders.Add(ctx, store.FolderInput{Name: "x", Color: "y"})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = summaries.Add(ctx, store.SummaryInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	assert.Equal(t, 0, notes.Len())
	assert.Equal(t, 0, folders.Len())
	assert.Equal(t, 0, summaries.Len())
	assert.Empty(t, storage.Keys(), "nothing was persisted")
}

func TestStore_UpdatePreservesImmutableFields(t *testing.T) {
	ctx := context.Background()
	notes := newNotes(t, memory.New(), &session{owner: "alice"})

	orig, err := notes.Add(ctx, store.NoteInput{Title: "original"})
	require.NoError(t, err)

	updated, found, err := notes.Store.Update(ctx, orig.ID, func(n *core.Note) error {
		n.ID = "hijacked"
		n.Owner = "mallory"
		n.CreatedAt = 42
		n.Title = "renamed"
		return nil
	})
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, orig.ID, updated.ID)
	assert.Equal(t, "alice", updated.Owner)
	assert.Equal(t, orig.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "renamed", updated.Title)

	stored, ok := notes.Get(orig.ID)
	require.True(t, ok)
	assert.Equal(t, updated, stored)

	_, ok = notes.Find("hijacked")
	assert.False(t, ok)
}

func TestStore_UpdatePatch(t *testing.T) {
	ctx := context.Background()
	notes := newNotes(t, memory.New(), &session{owner: "alice"})

	n, err := notes.Add(ctx, store.NoteInput{Title: "t", FolderID: core.Ref("f1")})
	require.NoError(t, err)

	done := core.StatusDone
	desc := "new description"
	updated, found, err := notes.Update(ctx, n.ID, store.NotePatch{Status: &done, Description: &desc})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, core.StatusDone, updated.Status)
	assert.Equal(t, "new description", updated.Description)
	assert.Equal(t, "t", updated.Title, "untouched fields are kept")
	assert.Equal(t, "f1", core.Deref(updated.FolderID))

	unfile := ""
	updated, _, err = notes.Update(ctx, n.ID, store.NotePatch{FolderID: &unfile})
	require.NoError(t, err)
	assert.Nil(t, updated.FolderID)

	empty := " "
	_, _, err = notes.Update(ctx, n.ID, store.NotePatch{Title: &empty})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	got, _ := notes.Get(n.ID)
	assert.Equal(t, "t", got.Title, "failed update leaves the record untouched")
}

func TestNotes_Search(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	sess := &session{owner: "alice"}
	notes := newNotes(t, memory.New(), sess, store.WithClock(clock.Now))

	add := func(title, desc string, folder *string) core.Note {
		t.Helper()
		n, err := notes.Add(ctx, store.NoteInput{Title: title, Description: desc, FolderID: folder})
		require.NoError(t, err)
		clock.Advance(time.Second)
		return n
	}
	groceries := add("Groceries", "milk and bread", nil)
	bread := add("Recipes", "Sourdough BREAD", core.Ref("kitchen"))
	add("Taxes", "file by april", nil)
	latest := add("bread crumbs", "", core.Ref("kitchen"))

	sess.login("bob")
	add("Bread for bob", "", nil)
	sess.login("alice")

	ids := func(found []core.Note) []string {
		out := make([]string, 0, len(found))
		for _, n := range found {
			out = append(out, n.ID)
		}
		return out
	}

	t.Run("Title And Description Ignore Case", func(t *testing.T) {
		assert.Equal(t, []string{latest.ID, bread.ID, groceries.ID}, ids(notes.Search("BrEaD", nil)))
	})

	t.Run("Folder Filter", func(t *testing.T) {
		assert.Equal(t, []string{latest.ID, bread.ID}, ids(notes.Search("bread", core.Ref("kitchen"))))
		assert.Empty(t, notes.Search("taxes", core.Ref("kitchen")))
	})

	t.Run("Empty Query Lists Newest First", func(t *testing.T) {
		found := notes.Search("", nil)
		require.Len(t, found, 4)
		assert.Equal(t, latest.ID, found[0].ID)
		assert.Equal(t, groceries.ID, found[3].ID)
	})
}

func TestStore_UpdateMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	notes := newNotes(t, storage, &session{owner: "alice"})

	title := "x"
	_, found, err := notes.Update(ctx, "missing", store.NotePatch{Title: &title})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, storage.Writes())
}

func TestStore_IdempotentRemove(t *testing.T) {
	ctx := context.Background()
	notes := newNotes(t, memory.New(), &session{owner: "alice"})

	a, err := notes.Add(ctx, store.NoteInput{Title: "a"})
	require.NoError(t, err)
	_, err = notes.Add(ctx, store.NoteInput{Title: "b"})
	require.NoError(t, err)

	removed, err := notes.Remove(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = notes.Remove(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, 1, notes.Len())
}

func TestStore_ClearForOwner(t *testing.T) {
	ctx := context.Background()
	sess := &session{owner: "alice"}
	notes := newNotes(t, memory.New(), sess)

	for i := 0; i < 3; i++ {
		_, err := notes.Add(ctx, store.NoteInput{Title: fmt.Sprintf("a%d", i)})
		require.NoError(t, err)
	}
	sess.login("bob")
	_, err := notes.Add(ctx, store.NoteInput{Title: "b"})
	require.NoError(t, err)

	assert.Equal(t, 3, notes.ClearForOwner(ctx, "alice"))
	assert.Equal(t, 1, notes.Len())
	assert.Len(t, notes.ListOwned(), 1)
}

func TestStore_CancelledLoadKeepsStoredData(t *testing.T) {
	storage := memory.New()
	sess := &session{owner: "alice"}

	first := newNotes(t, storage, sess)
	kept, err := first.Add(context.Background(), store.NoteInput{Title: "kept"})
	require.NoError(t, err)
	before, err := storage.Get(context.Background(), core.KeyNotes)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	second := store.NewNotes(storage, sess)
	assert.ErrorIs(t, second.Load(cancelled), context.Canceled)
	assert.True(t, second.Loading(), "a cancelled load does not count as loaded")

	_, err = second.Add(cancelled, store.NoteInput{Title: "lost"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, second.ClearForOwner(cancelled, "alice"))

	after, err := storage.Get(context.Background(), core.KeyNotes)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "stored blob is untouched")

	require.NoError(t, second.Load(context.Background()))
	assert.False(t, second.Loading())
	got, ok := second.Get(kept.ID)
	require.True(t, ok)
	assert.Equal(t, "kept", got.Title)
}

func TestStore_RoundTripPersistence(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	sess := &session{owner: "alice"}

	first := newNotes(t, storage, sess)
	a, err := first.Add(ctx, store.NoteInput{Title: "a", FolderID: core.Ref("folder")})
	require.NoError(t, err)
	b, err := first.Add(ctx, store.NoteInput{Title: "b"})
	require.NoError(t, err)
	_, err = first.Add(ctx, store.NoteInput{Title: "c"})
	require.NoError(t, err)

	status := core.StatusInProgress
	_, _, err = first.Update(ctx, a.ID, store.NotePatch{Status: &status})
	require.NoError(t, err)
	_, err = first.Remove(ctx, b.ID)
	require.NoError(t, err)

	second := newNotes(t, storage, sess)
	assert.Equal(t, first.ListOwned(), second.ListOwned())
}

func TestStore_PersistedShape(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	notes := newNotes(t, storage, &session{owner: "alice"}, store.WithClock(newClock().Now))

	_, err := notes.Add(ctx, store.NoteInput{Title: "t"})
	require.NoError(t, err)

	raw, err := storage.Get(ctx, core.KeyNotes)
	require.NoError(t, err)
	for _, field := range []string{`"id":`, `"owner":"alice"`, `"createdAt":1700000000000`, `"title":"t"`, `"status":"new"`, `"folderId":null`} {
		assert.Contains(t, string(raw), field)
	}
}

func TestStore_LoadsExistingBlob(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	blob := `[{"id":"n1","owner":"alice","createdAt":1,"title":"hello","description":"","status":"new","folderId":null},
	          {"id":"n2","owner":"bob","createdAt":2,"title":"other","description":"","status":"done","folderId":"f"}]`
	require.NoError(t, storage.Set(ctx, core.KeyNotes, []byte(blob)))

	notes := store.NewNotes(storage, &session{owner: "alice"})
	assert.True(t, notes.Loading())
	assert.Empty(t, notes.ListOwned(), "reads before load are empty")

	<-notes.Init(ctx)
	assert.False(t, notes.Loading())

	owned := notes.ListOwned()
	require.Len(t, owned, 1)
	assert.Equal(t, "n1", owned[0].ID)
	assert.Equal(t, 2, notes.Len())
}

func TestStore_StorageFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	t.Run("Failed Read Loads Empty", func(t *testing.T) {
		storage := memory.New()
		require.NoError(t, storage.Set(ctx, core.KeyNotes, []byte(`[{"id":"n1","owner":"alice","title":"x"}]`)))
		storage.FailReads(boom)

		var reported []error
		notes := newNotes(t, storage, &session{owner: "alice"}, store.WithErrorHandler(func(err error) {
			reported = append(reported, err)
		}))

		assert.Empty(t, notes.ListOwned())
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], boom)
	})

	t.Run("Corrupted Blob Loads Empty", func(t *testing.T) {
		storage := memory.New()
		require.NoError(t, storage.Set(ctx, core.KeyNotes, []byte("{ not json")))
		notes := newNotes(t, storage, &session{owner: "alice"})
		assert.Equal(t, 0, notes.Len())
	})

	t.Run("Failed Write Keeps Memory", func(t *testing.T) {
		storage := memory.New()
		var reported []error
		notes := newNotes(t, storage, &session{owner: "alice"}, store.WithErrorHandler(func(err error) {
			reported = append(reported, err)
		}))

		storage.FailWrites(boom)
		n, err := notes.Add(ctx, store.NoteInput{Title: "optimistic"})
		require.NoError(t, err, "storage failures are not surfaced")

		_, ok := notes.Get(n.ID)
		assert.True(t, ok, "in-memory change is not rolled back")
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], boom)

		// A fresh instance only sees what was persisted.
		storage.FailWrites(nil)
		fresh := newNotes(t, storage, &session{owner: "alice"})
		assert.Equal(t, 0, fresh.Len())
	})
}

func TestStore_OwnershipCheck(t *testing.T) {
	ctx := context.Background()
	sess := &session{owner: "alice"}
	notes := newNotes(t, memory.New(), sess, store.WithOwnershipCheck(true))

	n, err := notes.Add(ctx, store.NoteInput{Title: "mine"})
	require.NoError(t, err)

	sess.login("mallory")
	title := "stolen"
	_, _, err = notes.Update(ctx, n.ID, store.NotePatch{Title: &title})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = notes.Remove(ctx, n.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.ErrorIs(t, notes.Authorize(n.ID), core.ErrForbidden)
	assert.NoError(t, notes.Authorize("missing"))

	assert.Equal(t, 1, notes.Len())
}

func TestStore_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	notes := newNotes(t, memory.New(), &session{owner: "alice"})

	n, err := notes.Add(ctx, store.NoteInput{Title: "t", FolderID: core.Ref("f1")})
	require.NoError(t, err)

	*n.FolderID = "tampered"
	listed := notes.ListOwned()
	*listed[0].FolderID = "tampered"
	listed[0].Title = "tampered"

	got, _ := notes.Get(n.ID)
	assert.Equal(t, "f1", core.Deref(got.FolderID))
	assert.Equal(t, "t", got.Title)
}

func TestStore_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notes := newNotes(t, memory.New(), &session{owner: "alice"})
	events := notes.Subscribe(ctx)

	n, err := notes.Add(ctx, store.NoteInput{Title: "t"})
	require.NoError(t, err)
	title := "u"
	_, _, err = notes.Update(ctx, n.ID, store.NotePatch{Title: &title})
	require.NoError(t, err)
	_, err = notes.Remove(ctx, n.ID)
	require.NoError(t, err)
	_, err = notes.Remove(ctx, n.ID)
	require.NoError(t, err)

	var got []core.EventType
	for i := 0; i < 3; i++ {
		select {
		case e := <-events:
			assert.Equal(t, core.KeyNotes, e.Key)
			assert.Equal(t, n.ID, e.ID)
			got = append(got, e.Type)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
	assert.Equal(t, []core.EventType{core.EventCreate, core.EventModify, core.EventDelete}, got)

	select {
	case e := <-events:
		t.Fatalf("no-op remove must not publish, got %v", e)
	default:
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notes := newNotes(t, memory.New(), &session{owner: "alice"}, store.WithEventBuffer(2))
	events := notes.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_, _ = notes.Add(ctx, store.NoteInput{Title: fmt.Sprintf("n%d", i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutations blocked on a slow subscriber")
	}
	assert.Len(t, events, 2)
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	sess := &session{owner: "alice"}

	a := newNotes(t, storage, sess)
	b := newNotes(t, storage, sess)

	n, err := a.Add(ctx, store.NoteInput{Title: "from a"})
	require.NoError(t, err)

	_, ok := b.Get(n.ID)
	assert.False(t, ok)

	require.NoError(t, b.Reload(ctx))
	_, ok = b.Get(n.ID)
	assert.True(t, ok)
}

func TestStore_YAMLCodec(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	sess := &session{owner: "alice"}

	first := store.NewFolders(storage, sess, store.WithCodec(store.YAML))
	first.Load(ctx)
	root, err := first.Add(ctx, store.FolderInput{Name: "root", Color: "#FF6B6B"})
	require.NoError(t, err)
	_, err = first.Add(ctx, store.FolderInput{Name: "child", ParentID: &root.ID})
	require.NoError(t, err)

	raw, err := storage.Get(ctx, core.KeyFolders)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "name: root")
	assert.Contains(t, string(raw), "owner: alice")

	second := store.NewFolders(storage, sess, store.WithCodec(store.YAML))
	second.Load(ctx)
	assert.Equal(t, first.ListOwned(), second.ListOwned())
}

func TestStore_ConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	sess := &session{owner: "alice"}
	notes := newNotes(t, storage, sess)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := notes.Add(ctx, store.NoteInput{Title: fmt.Sprintf("n%d", i)})
			assert.NoError(t, err)
			_ = notes.ListOwned()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, notes.Len())
	fresh := newNotes(t, storage, sess)
	assert.Equal(t, 50, fresh.Len(), "last persist holds the whole collection")
}

func TestStore_State(t *testing.T) {
	notes := newNotes(t, memory.New(), &session{owner: "alice"})
	state, ok := notes.State().(store.State)
	require.True(t, ok)
	assert.Equal(t, core.KeyNotes, state.Key)
	assert.False(t, state.Loading)
	assert.Equal(t, "json", state.Codec)
	assert.Equal(t, "store", notes.ComponentType())
}
