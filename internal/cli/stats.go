package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	cmd.Flags().Bool("purge-orphans", false, "Delete messages whose chat no longer exists")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	purge, _ := cmd.Flags().GetBool("purge-orphans")

	a := mustOpen(cmd)
	defer a.Close()

	if purge {
		n, err := a.store.PurgeOrphans(cmd.Context())
		if err != nil {
			exitErr("purge orphans", err)
		}
		a.logger.Info("purged orphan messages", "count", n)
	}

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(cmd, stats)
}
