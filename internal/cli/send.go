package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rcliao/gchat/internal/model"
	"github.com/rcliao/gchat/internal/stream"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "send [text]",
		Short: "Send a prompt and stream the reply",
		Long:  "Send a prompt to the active chat (or --chat) and stream the model's reply. Reads the prompt from stdin when no text is given.",
		Run:   runSend,
	}

	cmd.Flags().StringP("chat", "c", "", "Target chat id (default: the active chat)")
	cmd.Flags().StringP("model", "m", "", "Model name (default: settings defaultModel)")
	cmd.Flags().StringP("key", "k", "", "API key id (default: the default key)")
	cmd.Flags().String("system", "", "System instruction text")
	cmd.Flags().StringP("prompt", "p", "", "Saved system prompt id to use as the system instruction")

	RootCmd.AddCommand(cmd)
}

func runSend(cmd *cobra.Command, args []string) {
	chatID, _ := cmd.Flags().GetString("chat")
	modelName, _ := cmd.Flags().GetString("model")
	keyID, _ := cmd.Flags().GetString("key")
	system, _ := cmd.Flags().GetString("system")
	promptID, _ := cmd.Flags().GetString("prompt")

	text := strings.Join(args, " ")
	if text == "" {
		b, err := readInput(cmd, "")
		if err != nil {
			exitErr("read stdin", err)
		}
		text = string(b)
	}

	a := mustOpen(cmd)
	defer a.Close()

	ctx := cmd.Context()
	chatID, err := a.chatOrActive(ctx, chatID)
	if err != nil {
		exitErr("restore chat", err)
	}
	if promptID != "" {
		p, err := a.chats.Prompt(ctx, promptID)
		if err != nil {
			exitErr("load prompt", err)
		}
		system = p.Text
	}

	opts := stream.SendOptions{
		ChatID:            chatID,
		Model:             modelName,
		APIKeyID:          keyID,
		SystemInstruction: system,
	}
	if textFormat() {
		opts.Observer = &streamPrinter{w: cmd.OutOrStdout()}
	}

	res, err := a.coord.Send(ctx, text, opts)
	if err != nil {
		exitErr("send", err)
	}
	if textFormat() {
		return
	}

	user, err := model.EncodeMessage(res.User)
	if err != nil {
		exitErr("encode message", err)
	}
	reply, err := model.EncodeMessage(res.Reply)
	if err != nil {
		exitErr("encode message", err)
	}
	printJSON(cmd, map[string]any{"user": json.RawMessage(user), "reply": json.RawMessage(reply)})
}

// streamPrinter writes answer text to w as it arrives.
type streamPrinter struct {
	stream.NopObserver
	w       io.Writer
	printed int
}

func (p *streamPrinter) ChunkApplied(d stream.Draft) {
	if len(d.Answer) > p.printed {
		fmt.Fprint(p.w, d.Answer[p.printed:])
		p.printed = len(d.Answer)
	}
}

func (p *streamPrinter) Committed(m *model.ModelMessage) {
	if p.printed == 0 {
		// Blocked, empty or thinking-only replies never streamed answer text.
		fmt.Fprintln(p.w, m.Content)
	} else {
		fmt.Fprintln(p.w)
	}
	if m.Usage != nil {
		fmt.Fprintf(p.w, "[%s] %d tokens, %.2f tok/s\n", m.ModelUsed, m.Usage.TotalTokenCount, m.Usage.TokensPerSecond)
	}
}
