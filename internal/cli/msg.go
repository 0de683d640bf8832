package cli

import (
	"encoding/json"
	"strings"

	"github.com/rcliao/gchat/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	msg := &cobra.Command{
		Use:   "msg",
		Short: "Edit or delete single messages",
	}

	edit := &cobra.Command{
		Use:   "edit <message-id> <content>",
		Short: "Replace a message's content",
		Args:  cobra.MinimumNArgs(2),
		Run:   runMsgEdit,
	}

	rm := &cobra.Command{
		Use:   "rm <message-id>",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(1),
		Run:   runMsgRm,
	}

	msg.AddCommand(edit, rm)
	RootCmd.AddCommand(msg)
}

func runMsgEdit(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	m, err := a.chats.EditMessage(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		exitErr("edit message", err)
	}
	b, err := model.EncodeMessage(m)
	if err != nil {
		exitErr("encode message", err)
	}
	printJSON(cmd, json.RawMessage(b))
}

func runMsgRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.chats.DeleteMessage(cmd.Context(), args[0]); err != nil {
		exitErr("delete message", err)
	}
	printOK(cmd, map[string]any{"id": args[0]})
}
