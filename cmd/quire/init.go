package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/internal/platform"
)

var (
	initAdapter string
	initCodec   string
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a quire data set in the current directory",
	Long: `Creates the .quire data directory and a quire.yaml file
recording the chosen adapter and codec. Commands run from this directory
(or any directory below it) use this data set.`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}

		if err := os.MkdirAll(filepath.Join(cwd, platform.DataDirName), 0755); err != nil {
			fatal("Failed to create data directory", err)
		}

		cfgPath := filepath.Join(cwd, platform.ConfigFileName)
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Printf("%s already exists, leaving it untouched.\n", platform.ConfigFileName)
		} else {
			raw, err := yaml.Marshal(quire.Config{
				Data:    platform.DataDirName,
				Adapter: initAdapter,
				Codec:   initCodec,
			})
			if err != nil {
				fatal("Failed to encode config", err)
			}
			if err := os.WriteFile(cfgPath, raw, 0644); err != nil {
				fatal("Failed to write config", err)
			}
		}

		// Opening once creates the storage (files or database) with the chosen settings.
		openInstance(cmd)
		fmt.Printf("Initialized quire data set in %s (adapter: %s, codec: %s)\n", cwd, initAdapter, initCodec)
	},
}

func init() {
	initCmd.Flags().StringVar(&initAdapter, "with-adapter", platform.AdapterFS, "Storage adapter to record in quire.yaml (fs or sqlite)")
	initCmd.Flags().StringVar(&initCodec, "with-codec", "json", "Collection encoding to record in quire.yaml (json or yaml)")
	rootCmd.AddCommand(initCmd)
}
