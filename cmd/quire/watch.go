package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire/pkg/adapters/lifecycle"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/library"
)

var watchKeys []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes to the data set as they happen",
	Long: `Streams create, modify and delete events. With the fs adapter,
edits made by other processes (another quire, a text editor) are picked up
and reloaded too.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		inst := openInstance(cmd)

		if err := inst.Follow(ctx); err != nil {
			if !errors.Is(err, library.ErrNotWatchable) {
				fatal("Failed to follow storage", err)
			}
			slog.Warn("storage does not report external changes, showing local ones only")
		}

		src := lifecycle.NewSource(lifecycle.FeedFunc(func(ctx context.Context) (<-chan core.Event, error) {
			return inst.Watch(ctx), nil
		}), watchKeys...)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start watching", err)
		}

		fmt.Fprintln(os.Stderr, "Watching for changes. Press Ctrl+C to stop.")
		for e := range src.Events() {
			ev, ok := e.(core.Event)
			if !ok {
				continue
			}
			ts := time.UnixMilli(ev.Timestamp).Format(time.TimeOnly)
			fmt.Printf("%s  %s\n", ts, ev)
		}
	},
}

func init() {
	watchCmd.Flags().StringSliceVarP(&watchKeys, "key", "k", nil, "Only these collections (notes, folders, summaries)")
	rootCmd.AddCommand(watchCmd)
}
