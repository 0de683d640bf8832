package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "move <chat-id> [folder-id]",
		Short: "Move a chat into a folder, or out of any folder",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runMove,
	}

	RootCmd.AddCommand(cmd)
}

func runMove(cmd *cobra.Command, args []string) {
	folder := ""
	if len(args) == 2 {
		folder = args[1]
	}

	a := mustOpen(cmd)
	defer a.Close()

	c, err := a.chats.MoveToFolder(cmd.Context(), args[0], folder)
	if err != nil {
		exitErr("move chat", err)
	}
	printJSON(cmd, c)
}
