package cli

import (
	"github.com/rcliao/gchat/internal/codec"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import chats from JSON",
		Long:  "Import chats from JSON (file or stdin). Expects the format produced by export. Chats whose id already exists are imported under a fresh id.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	data, err := readInput(cmd, name)
	if err != nil {
		exitErr("read input", err)
	}

	a := mustOpen(cmd)
	defer a.Close()

	report, err := codec.ImportChats(cmd.Context(), a.store, data, a.logger)
	if err != nil {
		exitErr("import", err)
	}
	printOK(cmd, map[string]any{
		"imported":         report.Imported,
		"skipped":          report.Skipped,
		"skipped_messages": report.SkippedMessages,
		"renamed":          report.Renamed,
	})
}
