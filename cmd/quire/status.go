package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the stores, storage and session",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		printJSON(inst.State())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of quire",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quire version %s\n", strings.TrimSpace(quire.Version))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, versionCmd)
}
