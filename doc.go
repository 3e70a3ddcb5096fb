// Package quire is the composition root of a small personal knowledge store:
// notes, folders and markdown summaries, each record owned by a local account.
//
// Every entity kind lives in memory as one collection and is mirrored whole
// into a single key of a key/value storage after each change. Reads are owner
// scoped and never touch storage. Folders form a tree through their parent
// reference; deleting one is cascade-safe (its contents are unfiled and its
// subfolders promoted instead of being orphaned).
//
// Features:
//
//   - **Pluggable storage**: a directory of JSON/YAML files (with change
//     watching), an embedded SQLite database, or memory.
//   - **Local accounts**: bcrypt hashed passwords and a persisted session.
//   - **Change feeds**: every store publishes CREATE/MODIFY/DELETE events, and a
//     library can follow external edits of its files.
//
// Usage:
//
//	inst, err := quire.New(ctx, "./data",
//		quire.WithAdapter("sqlite"),
//		quire.WithLogger(logger),
//	)
//
//	_, err = inst.Accounts.Register(ctx, "Ada", "ada", "secret")
//	folder, err := inst.Folders.Add(ctx, quire.FolderInput{Name: "Reading"})
//	note, err := inst.Notes.Add(ctx, quire.NoteInput{Title: "SICP", FolderID: &folder.ID})
package quire
