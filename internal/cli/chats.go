package cli

import (
	"fmt"
	"io"

	"github.com/rcliao/gchat/internal/chat"
	"github.com/rcliao/gchat/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats grouped for the sidebar",
		Run:   runChats,
	}

	cmd.Flags().StringP("search", "s", "", "Only chats whose title contains this text")

	RootCmd.AddCommand(cmd)
}

func runChats(cmd *cobra.Command, args []string) {
	search, _ := cmd.Flags().GetString("search")

	a := mustOpen(cmd)
	defer a.Close()

	list, err := a.chats.ListChats(cmd.Context(), search)
	if err != nil {
		exitErr("list chats", err)
	}

	if textFormat() {
		active, _, _ := a.store.GetValue(cmd.Context(), chat.LastActiveKey)
		printChatList(cmd.OutOrStdout(), list, active)
		return
	}
	printJSON(cmd, list)
}

func printChatList(w io.Writer, list chat.ChatList, active string) {
	section := func(name string, chats []model.Chat) {
		if len(chats) == 0 {
			return
		}
		fmt.Fprintf(w, "%s\n", name)
		for _, c := range chats {
			mark := " "
			if c.ID == active {
				mark = "*"
			}
			fmt.Fprintf(w, " %s %s  %s\n", mark, c.ID, c.Title)
		}
	}
	section("Pinned", list.Pinned)
	for _, g := range list.Folders {
		fmt.Fprintf(w, "%s/\n", g.Folder.Name)
		for _, c := range g.Chats {
			fmt.Fprintf(w, "   %s  %s\n", c.ID, c.Title)
		}
	}
	section("Chats", list.Uncategorized)
	section("Archived", list.Archived)
}
