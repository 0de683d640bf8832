package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "use [chat-id]",
		Short: "Switch the active chat",
		Args:  cobra.MaximumNArgs(1),
		Run:   runUse,
	}

	cmd.Flags().Bool("none", false, "Clear the active chat")

	RootCmd.AddCommand(cmd)
}

func runUse(cmd *cobra.Command, args []string) {
	none, _ := cmd.Flags().GetBool("none")
	if none == (len(args) == 1) {
		exitErr("use", fmt.Errorf("give a chat id or --none"))
	}

	a := mustOpen(cmd)
	defer a.Close()

	id := ""
	if !none {
		id = args[0]
	}
	if err := a.chats.SwitchChat(cmd.Context(), id); err != nil {
		exitErr("switch chat", err)
	}
	printOK(cmd, map[string]any{"active": id})
}
