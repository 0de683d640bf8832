package cli

import (
	"fmt"

	"github.com/rcliao/gchat/internal/codec"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export chats as JSON or a chat as markdown",
		Long:  "Export all chats (or one with --chat) as a JSON array that import accepts. With -f md, print one chat as a markdown transcript.",
		Run:   runExport,
	}

	cmd.Flags().StringP("chat", "c", "", "Export only this chat")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	chatID, _ := cmd.Flags().GetString("chat")

	a := mustOpen(cmd)
	defer a.Close()

	ctx := cmd.Context()
	if formatFlag == "md" {
		id, err := a.chatOrActive(ctx, chatID)
		if err != nil {
			exitErr("restore chat", err)
		}
		msgs, err := a.chats.Messages(ctx, id)
		if err != nil {
			exitErr("export", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), codec.FormatMarkdown(msgs))
		return
	}

	var (
		docs []codec.ChatDoc
		err  error
	)
	if chatID != "" {
		docs, err = codec.ExportChat(ctx, a.store, chatID)
	} else {
		docs, err = codec.ExportAll(ctx, a.store)
	}
	if err != nil {
		exitErr("export", err)
	}
	printJSON(cmd, docs)
}
