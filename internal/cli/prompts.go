package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage saved system prompts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List system prompts",
		Run:   runPromptsList,
	}

	add := &cobra.Command{
		Use:   "add <title> [text]",
		Short: "Save a system prompt (text from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runPromptsAdd,
	}

	update := &cobra.Command{
		Use:   "update <prompt-id>",
		Short: "Change a prompt's title or text",
		Args:  cobra.ExactArgs(1),
		Run:   runPromptsUpdate,
	}
	update.Flags().String("title", "", "New title")
	update.Flags().String("text", "", "New text")

	rm := &cobra.Command{
		Use:   "rm <prompt-id>",
		Short: "Delete a system prompt",
		Args:  cobra.ExactArgs(1),
		Run:   runPromptsRm,
	}

	cmd.AddCommand(list, add, update, rm)
	RootCmd.AddCommand(cmd)
}

func runPromptsList(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	prompts, err := a.chats.Prompts(cmd.Context())
	if err != nil {
		exitErr("list prompts", err)
	}
	if textFormat() {
		for _, p := range prompts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", p.ID, p.Title)
		}
		return
	}
	printJSON(cmd, prompts)
}

func runPromptsAdd(cmd *cobra.Command, args []string) {
	text := ""
	if len(args) == 2 {
		text = args[1]
	} else {
		b, err := readInput(cmd, "")
		if err != nil {
			exitErr("read stdin", err)
		}
		text = string(b)
	}

	a := mustOpen(cmd)
	defer a.Close()

	p, err := a.chats.AddPrompt(cmd.Context(), args[0], text)
	if err != nil {
		exitErr("add prompt", err)
	}
	printJSON(cmd, p)
}

func runPromptsUpdate(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	ctx := cmd.Context()
	p, err := a.chats.Prompt(ctx, args[0])
	if err != nil {
		exitErr("update prompt", err)
	}
	if cmd.Flags().Changed("title") {
		p.Title, _ = cmd.Flags().GetString("title")
	}
	if cmd.Flags().Changed("text") {
		p.Text, _ = cmd.Flags().GetString("text")
	}
	if err := a.chats.UpdatePrompt(ctx, p); err != nil {
		exitErr("update prompt", err)
	}
	printJSON(cmd, p)
}

func runPromptsRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.chats.DeletePrompt(cmd.Context(), args[0]); err != nil {
		exitErr("delete prompt", err)
	}
	printOK(cmd, map[string]any{"id": args[0]})
}
