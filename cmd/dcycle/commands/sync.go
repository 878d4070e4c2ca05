package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Recompute the cycle-time cache from the tracker",
	Long: `Wipes the cycle-time cache and recomputes every issue matched by the
configured query. The tracker is throttled between requests, so large
projects take a while.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := orch.Resync(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().
			Int("total", summary.Total).
			Int("computed", summary.Computed).
			Int("failed", summary.Failed).
			Str("duration", summary.Duration).
			Msg("Sync finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
