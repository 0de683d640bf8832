package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the model list",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List known models",
		Run:   runModelsList,
	}
	list.Flags().Bool("active", false, "Only active models, favorites first")

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch available models and reconcile the list",
		Run:   runModelsRefresh,
	}

	set := &cobra.Command{
		Use:   "set <model>",
		Short: "Change a model's active or favorite flag",
		Args:  cobra.ExactArgs(1),
		Run:   runModelsSet,
	}
	set.Flags().Bool("active", false, "Show the model in the picker")
	set.Flags().Bool("favorite", false, "List the model first")

	rm := &cobra.Command{
		Use:   "rm <model>",
		Short: "Remove a model from the list",
		Args:  cobra.ExactArgs(1),
		Run:   runModelsRm,
	}

	cmd.AddCommand(list, refresh, set, rm)
	RootCmd.AddCommand(cmd)
}

func runModelsList(cmd *cobra.Command, args []string) {
	activeOnly, _ := cmd.Flags().GetBool("active")

	a := mustOpen(cmd)
	defer a.Close()

	models := a.settings.Get().Models.List
	if activeOnly {
		models = a.settings.ActiveModels()
	}
	if textFormat() {
		for _, m := range models {
			fav := " "
			if m.IsFavorite {
				fav = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-40s active=%t status=%s\n", fav, m.Name, m.IsActive, m.Status)
		}
		return
	}
	printJSON(cmd, models)
}

func runModelsRefresh(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	models, err := a.chats.RefreshModels(cmd.Context(), a.gemini)
	if err != nil {
		exitErr("refresh models", err)
	}
	printJSON(cmd, models)
}

func runModelsSet(cmd *cobra.Command, args []string) {
	var active, favorite *bool
	if cmd.Flags().Changed("active") {
		v, _ := cmd.Flags().GetBool("active")
		active = &v
	}
	if cmd.Flags().Changed("favorite") {
		v, _ := cmd.Flags().GetBool("favorite")
		favorite = &v
	}
	if active == nil && favorite == nil {
		exitErr("set model", fmt.Errorf("give --active or --favorite"))
	}

	a := mustOpen(cmd)
	defer a.Close()

	if err := a.settings.SetModelFlags(cmd.Context(), args[0], active, favorite); err != nil {
		exitErr("set model", err)
	}
	printOK(cmd, map[string]any{"model": args[0]})
}

func runModelsRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.settings.DeleteModel(cmd.Context(), args[0]); err != nil {
		exitErr("delete model", err)
	}
	printOK(cmd, map[string]any{"model": args[0]})
}
