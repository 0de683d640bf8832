package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	pin := &cobra.Command{
		Use:   "pin <chat-id>",
		Short: "Pin a chat to the top of the list",
		Args:  cobra.ExactArgs(1),
		Run:   runPin,
	}
	pin.Flags().Bool("off", false, "Unpin instead")

	archive := &cobra.Command{
		Use:   "archive <chat-id>",
		Short: "Move a chat to the archive",
		Args:  cobra.ExactArgs(1),
		Run:   runArchive,
	}
	archive.Flags().Bool("off", false, "Unarchive instead")

	RootCmd.AddCommand(pin, archive)
}

func runPin(cmd *cobra.Command, args []string) {
	off, _ := cmd.Flags().GetBool("off")

	a := mustOpen(cmd)
	defer a.Close()

	c, err := a.chats.SetPinned(cmd.Context(), args[0], !off)
	if err != nil {
		exitErr("pin", err)
	}
	printJSON(cmd, c)
}

func runArchive(cmd *cobra.Command, args []string) {
	off, _ := cmd.Flags().GetBool("off")

	a := mustOpen(cmd)
	defer a.Close()

	c, err := a.chats.SetArchived(cmd.Context(), args[0], !off)
	if err != nil {
		exitErr("archive", err)
	}
	printJSON(cmd, c)
}
