package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/gchat/internal/codec"
	"github.com/rcliao/gchat/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show [chat-id]",
		Short: "Show a chat's messages (default: the active chat)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runShow,
	}

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	ctx := cmd.Context()
	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	id, err := a.chatOrActive(ctx, id)
	if err != nil {
		exitErr("restore chat", err)
	}
	c, err := a.chats.Chat(ctx, id)
	if err != nil {
		exitErr("show", err)
	}
	msgs, err := a.chats.Messages(ctx, id)
	if err != nil {
		exitErr("show", err)
	}

	if textFormat() {
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n\n%s", c.Title, codec.FormatMarkdown(msgs))
		return
	}

	out := struct {
		Chat     model.Chat        `json:"chat"`
		Messages []json.RawMessage `json:"messages"`
	}{Chat: c, Messages: make([]json.RawMessage, 0, len(msgs))}
	for _, m := range msgs {
		b, err := model.EncodeMessage(m)
		if err != nil {
			exitErr("encode message", err)
		}
		out.Messages = append(out.Messages, b)
	}
	printJSON(cmd, out)
}
