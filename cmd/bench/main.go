package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/quire"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	folders := flag.Int("folders", 20, "Number of folders to spread the notes over")
	adapter := flag.String("adapter", "fs", "Storage adapter to measure (fs, sqlite or memory)")
	keep := flag.Bool("keep", false, "Keep the benchmark data set after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "quire_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	open := func() *quire.Instance {
		inst, err := quire.New(ctx, benchDir,
			quire.WithLogger(logger),
			quire.WithAdapter(*adapter),
			quire.WithIdentity(quire.StaticIdentity("bench")),
			quire.WithDevSafety(false),
		)
		if err != nil {
			panic(err)
		}
		return inst
	}

	// Every mutation persists the whole collection, so this grows quadratically.
	fmt.Printf("Generating %d notes in %d folders (%s) in %s...\n", *count, *folders, *adapter, benchDir)
	inst := open()
	startGen := time.Now()
	ids := make([]string, 0, *folders)
	for i := 0; i < *folders; i++ {
		f, err := inst.Folders.Add(ctx, quire.FolderInput{Name: fmt.Sprintf("Folder %d", i)})
		if err != nil {
			panic(err)
		}
		ids = append(ids, f.ID)
	}
	for i := 0; i < *count; i++ {
		folder := ids[i%len(ids)]
		if _, err := inst.Notes.Add(ctx, quire.NoteInput{
			Title:    fmt.Sprintf("Note %d", i),
			FolderID: &folder,
		}); err != nil {
			panic(err)
		}
	}
	generation := time.Since(startGen)
	_ = inst.Close()

	// A fresh instance simulates a new CLI command run.
	startLoad := time.Now()
	inst = open()
	load := time.Since(startLoad)
	defer inst.Close()

	startCascade := time.Now()
	res, err := inst.DeleteFolderCascadeSafe(ctx, ids[0])
	if err != nil {
		panic(err)
	}
	cascade := time.Since(startCascade)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %s):\n", *count, *adapter)
	fmt.Printf("  Generate: %v\n", generation)
	fmt.Printf("  Load:     %v (Items: %d)\n", load, inst.Notes.Len())
	fmt.Printf("  Cascade:  %v (Unfiled: %d)\n", cascade, res.Notes)
	fmt.Printf("--------------------------------------------------\n")
}
