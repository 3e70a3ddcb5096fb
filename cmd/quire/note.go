package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/pkg/core"
)

var (
	noteDesc    string
	noteStatus  string
	noteFolder  string
	noteTitle   string
	noteUnfiled bool
	noteSearch  string
	asJSON      bool
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		in := quire.NoteInput{
			Title:       args[0],
			Description: noteDesc,
			FolderID:    optional(noteFolder != "", noteFolder),
		}
		if noteStatus != "" {
			st, err := core.ParseNoteStatus(noteStatus)
			if err != nil {
				fatal("Invalid status", err)
			}
			in.Status = st
		}

		note, err := inst.Notes.Add(context.Background(), in)
		if err != nil {
			fatal("Failed to add note", err)
		}
		fmt.Println(note.ID)
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your notes, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		notes := inst.Notes.Search(noteSearch, optional(noteFolder != "", noteFolder))
		if noteUnfiled || noteStatus != "" {
			kept := notes[:0]
			for _, n := range notes {
				if noteUnfiled && n.FolderID != nil {
					continue
				}
				if noteStatus != "" && string(n.Status) != noteStatus {
					continue
				}
				kept = append(kept, n)
			}
			notes = kept
		}

		if asJSON {
			printJSON(notes)
			return
		}
		if len(notes) == 0 {
			fmt.Println("No notes.")
			return
		}
		for _, n := range notes {
			folder := "-"
			if f, ok := inst.ResolveFolder(n.FolderID); ok {
				folder = f.Name
			}
			fmt.Printf("%s  %-11s  %-16s  %s  %s\n",
				n.ID, n.Status, folder, n.Created().Format(time.DateOnly), n.Title)
		}
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change fields of a note",
	Long: `Only the given flags are changed. Pass --folder "" to move the note
out of its folder.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		flags := cmd.Flags()
		patch := quire.NotePatch{
			Title:       optional(flags.Changed("title"), noteTitle),
			Description: optional(flags.Changed("desc"), noteDesc),
			FolderID:    optional(flags.Changed("folder"), noteFolder),
		}
		if flags.Changed("status") {
			st, err := core.ParseNoteStatus(noteStatus)
			if err != nil {
				fatal("Invalid status", err)
			}
			patch.Status = &st
		}

		_, ok, err := inst.Notes.Update(context.Background(), args[0], patch)
		if err != nil {
			fatal("Failed to update note", err)
		}
		if !ok {
			fatal("Failed to update note", fmt.Errorf("no note with id %q", args[0]))
		}
		fmt.Println("Updated", args[0])
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		removed, err := inst.Notes.Remove(context.Background(), args[0])
		if err != nil {
			fatal("Failed to delete note", err)
		}
		if removed {
			fmt.Println("Deleted", args[0])
		}
	},
}

func init() {
	noteAddCmd.Flags().StringVarP(&noteDesc, "desc", "d", "", "Description")
	noteAddCmd.Flags().StringVarP(&noteStatus, "status", "s", "", "Status: new, in-progress or done")
	noteAddCmd.Flags().StringVarP(&noteFolder, "folder", "f", "", "Folder id")

	noteListCmd.Flags().StringVarP(&noteFolder, "folder", "f", "", "Only notes in this folder")
	noteListCmd.Flags().StringVarP(&noteSearch, "search", "q", "", "Only notes whose title or description contains this text (case-insensitive)")
	noteListCmd.Flags().BoolVar(&noteUnfiled, "unfiled", false, "Only notes outside any folder")
	noteListCmd.Flags().StringVarP(&noteStatus, "status", "s", "", "Only notes with this status")
	noteListCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	noteEditCmd.Flags().StringVarP(&noteTitle, "title", "t", "", "New title")
	noteEditCmd.Flags().StringVarP(&noteDesc, "desc", "d", "", "New description")
	noteEditCmd.Flags().StringVarP(&noteStatus, "status", "s", "", "New status")
	noteEditCmd.Flags().StringVarP(&noteFolder, "folder", "f", "", "New folder id (empty to unfile)")

	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteEditCmd, noteRmCmd)
	rootCmd.AddCommand(noteCmd)
}
