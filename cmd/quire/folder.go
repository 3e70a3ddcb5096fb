package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
)

var (
	folderName   string
	folderColor  string
	folderParent string
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		folder, err := inst.Folders.Add(context.Background(), quire.FolderInput{
			Name:     args[0],
			Color:    folderColor,
			ParentID: optional(folderParent != "", folderParent),
		})
		if err != nil {
			fatal("Failed to add folder", err)
		}
		fmt.Println(folder.ID)
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the folders at the root level or below --parent",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		folders := inst.Folders.Roots()
		if folderParent != "" {
			folders = inst.Folders.Children(folderParent)
		}

		if asJSON {
			printJSON(folders)
			return
		}
		for _, f := range folders {
			fmt.Printf("%s  %s  %s\n", f.ID, f.Color, f.Name)
		}
	},
}

var folderTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the folder hierarchy with item counts",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		var walk func(nodes []*quire.FolderNode, depth int)
		walk = func(nodes []*quire.FolderNode, depth int) {
			for _, n := range nodes {
				fmt.Printf("%s%s (%d notes, %d summaries)  %s\n",
					strings.Repeat("  ", depth), n.Folder.Name,
					len(inst.Notes.InFolder(n.Folder.ID)),
					len(inst.Summaries.InFolder(n.Folder.ID)),
					n.Folder.ID)
				walk(n.Children, depth+1)
			}
		}
		walk(inst.Folders.Tree(), 0)
		fmt.Printf("(%d unfiled notes, %d unfiled summaries)\n",
			len(inst.Notes.Unfiled()), len(inst.Summaries.Unfiled()))
	},
}

var folderShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show the contents of a folder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		c, ok := inst.Contents(args[0])
		if !ok {
			fatal("Failed to show folder", fmt.Errorf("no folder with id %q", args[0]))
		}
		if asJSON {
			printJSON(c)
			return
		}

		fmt.Println(strings.Join(append(c.Path, c.Folder.Name), " / "))
		for _, f := range c.Subfolders {
			fmt.Printf("  [folder]  %s  %s\n", f.ID, f.Name)
		}
		for _, n := range c.Notes {
			fmt.Printf("  [note]    %s  %s\n", n.ID, n.Title)
		}
		for _, s := range c.Summaries {
			fmt.Printf("  [summary] %s  %s\n", s.ID, s.Title)
		}
	},
}

var folderPathCmd = &cobra.Command{
	Use:   "path [id]",
	Short: "Print the ancestors of a folder",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		folder, ok := inst.Folders.Get(args[0])
		if !ok {
			fatal("Failed to resolve folder", fmt.Errorf("no folder with id %q", args[0]))
		}
		fmt.Println(strings.Join(append(inst.Folders.AncestorPath(folder.ID), folder.Name), " / "))
	},
}

var folderEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Rename, recolor or move a folder",
	Long: `Only the given flags are changed. Pass --parent "" to move the folder
to the root level. Moving a folder below one of its own descendants fails.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		flags := cmd.Flags()
		_, ok, err := inst.Folders.Update(context.Background(), args[0], quire.FolderPatch{
			Name:     optional(flags.Changed("name"), folderName),
			Color:    optional(flags.Changed("color"), folderColor),
			ParentID: optional(flags.Changed("parent"), folderParent),
		})
		if err != nil {
			fatal("Failed to update folder", err)
		}
		if !ok {
			fatal("Failed to update folder", fmt.Errorf("no folder with id %q", args[0]))
		}
		fmt.Println("Updated", args[0])
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a folder, keeping its contents",
	Long: `Deletes a folder. Its notes and summaries become unfiled and its
direct subfolders move to the root level.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		requireLogin(inst)

		res, err := inst.DeleteFolderCascadeSafe(context.Background(), args[0])
		if err != nil {
			fatal("Failed to delete folder", err)
		}
		if !res.Removed {
			fmt.Println("No such folder:", args[0])
			return
		}
		fmt.Printf("Deleted %s (%d notes and %d summaries unfiled, %d subfolders moved to the root)\n",
			args[0], res.Notes, res.Summaries, res.Children)
	},
}

var paletteCmd = &cobra.Command{
	Use:   "colors",
	Short: "List the folder color palette",
	Run: func(cmd *cobra.Command, args []string) {
		inst := openInstance(cmd)
		for _, c := range inst.Folders.Palette() {
			fmt.Println(c)
		}
	},
}

func init() {
	folderAddCmd.Flags().StringVarP(&folderColor, "color", "c", "", "Color (random palette entry when omitted)")
	folderAddCmd.Flags().StringVarP(&folderParent, "parent", "p", "", "Parent folder id")

	folderListCmd.Flags().StringVarP(&folderParent, "parent", "p", "", "List the subfolders of this folder")
	folderListCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	folderShowCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	folderEditCmd.Flags().StringVarP(&folderName, "name", "n", "", "New name")
	folderEditCmd.Flags().StringVarP(&folderColor, "color", "c", "", "New color")
	folderEditCmd.Flags().StringVarP(&folderParent, "parent", "p", "", "New parent id (empty for the root level)")

	folderCmd.AddCommand(folderAddCmd, folderListCmd, folderTreeCmd, folderShowCmd, folderPathCmd, folderEditCmd, folderRmCmd, paletteCmd)
	rootCmd.AddCommand(folderCmd)
}
