package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/internal/platform"
)

var (
	verbose bool
	dataDir string
	adapter string
	codec   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quire",
	Short: "Notes, folders and summaries kept in a local store",
	Long: `Quire keeps short notes, markdown summaries and a folder tree per local account.
Data lives in a directory of JSON/YAML files or in an embedded SQLite database.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Data directory (default: <root>/.quire)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&codec, "codec", "", "Collection encoding: json or yaml")
}

// resolveSettings finds the root (a directory holding .quire or quire.yaml),
// reads its config file and applies the command line flags on top.
func resolveSettings(cmd *cobra.Command) (string, []quire.Option) {
	cwd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}

	base := cwd
	var cfg quire.Config
	root, err := quire.FindRoot(cwd)
	switch {
	case err == nil:
		base = root
		if cfg, err = quire.LoadConfig(root); err != nil {
			fatal("Failed to read config", err)
		}
	case !errors.Is(err, platform.ErrRootNotFound):
		fatal("Failed to locate root", err)
	}

	path := cfg.Data
	if dataDir != "" {
		path = dataDir
	}
	if path == "" {
		path = filepath.Join(base, platform.DataDirName)
	}

	opts := append(cfg.Options(), quire.WithLogger(slog.Default()))
	if cmd.Flags().Changed("adapter") {
		opts = append(opts, quire.WithAdapter(adapter))
	}
	if cmd.Flags().Changed("codec") {
		opts = append(opts, quire.WithCodec(codec))
	}
	return path, opts
}

// openInstance opens and loads the data set of the current directory.
func openInstance(cmd *cobra.Command) *quire.Instance {
	path, opts := resolveSettings(cmd)
	slog.Debug("opening data set", "path", path)

	inst, err := quire.New(context.Background(), path, opts...)
	if err != nil {
		fatal("Failed to open data set", err)
	}
	opened = inst
	cobra.OnFinalize(closeInstance)
	return inst
}

// opened is the data set of the running command, closed on every exit path.
var opened *quire.Instance

func closeInstance() {
	if opened == nil {
		return
	}
	if err := opened.Close(); err != nil {
		slog.Warn("failed to close data set", "error", err)
	}
	opened = nil
}

// requireLogin exits unless someone is signed in.
func requireLogin(inst *quire.Instance) string {
	owner, ok := inst.Accounts.CurrentOwner()
	if !ok {
		fmt.Fprintln(os.Stderr, "Not signed in. Run 'quire login' or 'quire register' first.")
		exit(1)
	}
	return owner
}
