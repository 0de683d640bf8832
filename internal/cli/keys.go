package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage Gemini API keys",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored keys (masked)",
		Run:   runKeysList,
	}

	add := &cobra.Command{
		Use:   "add <name> <key>",
		Short: "Store a key; the first key becomes the default",
		Args:  cobra.ExactArgs(2),
		Run:   runKeysAdd,
	}

	rm := &cobra.Command{
		Use:   "rm <key-id>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		Run:   runKeysRm,
	}

	def := &cobra.Command{
		Use:   "default <key-id>",
		Short: "Make a key the default",
		Args:  cobra.ExactArgs(1),
		Run:   runKeysDefault,
	}

	cmd.AddCommand(list, add, rm, def)
	RootCmd.AddCommand(cmd)
}

// maskKey keeps the last four characters of a secret.
func maskKey(k string) string {
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", 8) + k[len(k)-4:]
}

func runKeysList(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	keys := a.settings.Get().APIKeys
	if textFormat() {
		for _, k := range keys {
			mark := " "
			if k.IsDefault {
				mark = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s  %s\n", mark, k.ID, k.Name, maskKey(k.Key))
		}
		return
	}
	for i := range keys {
		keys[i].Key = maskKey(keys[i].Key)
	}
	printJSON(cmd, keys)
}

func runKeysAdd(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	k, err := a.settings.AddAPIKey(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("add key", err)
	}
	k.Key = maskKey(k.Key)
	printJSON(cmd, k)
}

func runKeysRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.settings.DeleteAPIKey(cmd.Context(), args[0]); err != nil {
		exitErr("delete key", err)
	}
	printOK(cmd, map[string]any{"id": args[0]})
}

func runKeysDefault(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.settings.SetDefaultAPIKey(cmd.Context(), args[0]); err != nil {
		exitErr("set default key", err)
	}
	printOK(cmd, map[string]any{"default": args[0]})
}
