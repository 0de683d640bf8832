package cli

import (
	"github.com/rcliao/gchat/internal/codec"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show, change, export or import user settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Run:   runSettingsShow,
	}

	set := &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set one settings field",
		Long:  "Set one settings field by its JSON name, e.g. `gchat settings set temperature 0.7`. The value is parsed as JSON, falling back to a plain string.",
		Args:  cobra.ExactArgs(2),
		Run:   runSettingsSet,
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Export settings and system prompts as JSON",
		Run:   runSettingsExport,
	}

	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace settings and system prompts from an export",
		Args:  cobra.MaximumNArgs(1),
		Run:   runSettingsImport,
	}

	cmd.AddCommand(show, set, export, imp)
	RootCmd.AddCommand(cmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	s := a.settings.Get()
	for i := range s.APIKeys {
		s.APIKeys[i].Key = maskKey(s.APIKeys[i].Key)
	}
	printJSON(cmd, s)
}

func runSettingsSet(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.settings.SetField(cmd.Context(), args[0], args[1]); err != nil {
		exitErr("set "+args[0], err)
	}
	printOK(cmd, map[string]any{"field": args[0]})
}

func runSettingsExport(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	bundle, err := codec.ExportSettings(cmd.Context(), a.settings, a.store)
	if err != nil {
		exitErr("export settings", err)
	}
	printJSON(cmd, bundle)
}

func runSettingsImport(cmd *cobra.Command, args []string) {
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

	n, err := codec.ImportSettings(cmd.Context(), a.settings, a.store, data)
	if err != nil {
		exitErr("import settings", err)
	}
	printOK(cmd, map[string]any{"system_prompts": n})
}
