package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rename <chat-id> <title>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRename,
	}

	RootCmd.AddCommand(cmd)
}

func runRename(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	c, err := a.chats.RenameChat(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		exitErr("rename chat", err)
	}
	printJSON(cmd, c)
}
