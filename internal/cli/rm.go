package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [chat-id]",
		Short: "Delete a chat and its messages",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRm,
	}

	cmd.Flags().Bool("all", false, "Delete every chat (irreversible)")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		exitErr("rm", fmt.Errorf("give a chat id or --all"))
	}

	a := mustOpen(cmd)
	defer a.Close()

	if all {
		if err := a.chats.DeleteAllChats(cmd.Context()); err != nil {
			exitErr("rm", err)
		}
		printOK(cmd, map[string]any{"all": true})
		return
	}

	// Load the active pointer so deleting the active chat moves it on.
	if _, err := a.chats.Restore(cmd.Context()); err != nil {
		exitErr("rm", err)
	}
	if err := a.chats.DeleteChat(cmd.Context(), args[0]); err != nil {
		exitErr("rm", err)
	}
	printOK(cmd, map[string]any{"id": args[0], "active": a.chats.ActiveID()})
}
