package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new chat and make it active",
		Run:   runNew,
	}

	RootCmd.AddCommand(cmd)
}

func runNew(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	c, err := a.chats.CreateChat(cmd.Context())
	if err != nil {
		exitErr("new chat", err)
	}
	printJSON(cmd, c)
}
