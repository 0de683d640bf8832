package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Manage chat folders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Run:   runFoldersList,
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a folder",
		Args:  cobra.MinimumNArgs(1),
		Run:   runFoldersAdd,
	}

	rename := &cobra.Command{
		Use:   "rename <folder-id> <name>",
		Short: "Rename a folder",
		Args:  cobra.MinimumNArgs(2),
		Run:   runFoldersRename,
	}

	rm := &cobra.Command{
		Use:   "rm <folder-id>",
		Short: "Delete a folder; its chats become uncategorized",
		Args:  cobra.ExactArgs(1),
		Run:   runFoldersRm,
	}

	cmd.AddCommand(list, add, rename, rm)
	RootCmd.AddCommand(cmd)
}

func runFoldersList(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	folders := a.settings.Get().Folders
	if textFormat() {
		for _, f := range folders {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", f.ID, f.Name)
		}
		return
	}
	printJSON(cmd, folders)
}

func runFoldersAdd(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	f, err := a.settings.AddFolder(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		exitErr("add folder", err)
	}
	printJSON(cmd, f)
}

func runFoldersRename(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	name := strings.Join(args[1:], " ")
	if err := a.settings.RenameFolder(cmd.Context(), args[0], name); err != nil {
		exitErr("rename folder", err)
	}
	printOK(cmd, map[string]any{"id": args[0], "name": name})
}

func runFoldersRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.chats.DeleteFolder(cmd.Context(), args[0]); err != nil {
		exitErr("delete folder", err)
	}
	printOK(cmd, map[string]any{"id": args[0]})
}
