package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
)

var (
	summaryTitle   string
	summaryContent string
	summaryFile    string
	summaryFolder  string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Manage markdown summaries",
}

// summaryBody returns --content, or the contents of --file ("-" reads stdin).
func summaryBody(cmd *cobra.Command) (string, bool) {
	if summaryFile == "" {
		return summaryContent, cmd.Flags().Changed("content")
	}

	var (
		raw []byte
		err error
	)
	if summaryFile == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(summaryFile)
	}
	if err != nil {
		fatal("Failed to read content", err)
	}
	return string(raw), true
}

var summaryAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a summary",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		content, _ := summaryBody(cmd)
		s, err := inst.Summaries.Add(context.Background(), quire.SummaryInput{
			Title:    args[0],
			Content:  content,
			FolderID: optional(summaryFolder != "", summaryFolder),
		})
		if err != nil {
			fatal("Failed to add summary", err)
		}
		fmt.Println(s.ID)
	},
}

var summaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your summaries",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		summaries := inst.Summaries.ListOwned()
		if summaryFolder != "" {
			summaries = inst.Summaries.InFolder(summaryFolder)
		}

		if asJSON {
			printJSON(summaries)
			return
		}
		if len(summaries) == 0 {
			fmt.Println("No summaries.")
			return
		}
		for _, s := range summaries {
			updated := time.UnixMilli(s.UpdatedAt).Format(time.DateTime)
			fmt.Printf("%s  %s  %s\n", s.ID, updated, s.Title)
		}
	},
}

var summaryShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the content of a summary",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		s, ok := inst.Summaries.Get(args[0])
		if !ok {
			fatal("Failed to show summary", fmt.Errorf("no summary with id %q", args[0]))
		}
		fmt.Printf("# %s\n\n%s\n", s.Title, s.Content)
	},
}

var summaryEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change fields of a summary",
	Long: `Only the given flags are changed. Pass --folder "" to move the summary
out of its folder.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		content, changed := summaryBody(cmd)
		flags := cmd.Flags()
		_, ok, err := inst.Summaries.Update(context.Background(), args[0], quire.SummaryPatch{
			Title:    optional(flags.Changed("title"), summaryTitle),
			Content:  optional(changed, content),
			FolderID: optional(flags.Changed("folder"), summaryFolder),
		})
		if err != nil {
			fatal("Failed to update summary", err)
		}
		if !ok {
			fatal("Failed to update summary", fmt.Errorf("no summary with id %q", args[0]))
		}
		fmt.Println("Updated", args[0])
	},
}

var summaryRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a summary",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		removed, err := inst.Summaries.Remove(context.Background(), args[0])
		if err != nil {
			fatal("Failed to delete summary", err)
		}
		if removed {
			fmt.Println("Deleted", args[0])
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{summaryAddCmd, summaryEditCmd} {
		c.Flags().StringVarP(&summaryContent, "content", "c", "", "Markdown content")
		c.Flags().StringVar(&summaryFile, "file", "", "Read the content from a file (- for stdin)")
		c.Flags().StringVarP(&summaryFolder, "folder", "f", "", "Folder id")
	}
	summaryEditCmd.Flags().StringVarP(&summaryTitle, "title", "t", "", "New title")

	summaryListCmd.Flags().StringVarP(&summaryFolder, "folder", "f", "", "Only summaries in this folder")
	summaryListCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	summaryCmd.AddCommand(summaryAddCmd, summaryListCmd, summaryShowCmd, summaryEditCmd, summaryRmCmd)
	rootCmd.AddCommand(summaryCmd)
}
