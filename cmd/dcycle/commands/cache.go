package commands

import (
	"fmt"

	"dcycle/internal/cycle"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the cycle-time cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every cached cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := orch.AllCached()
		if err != nil {
			return err
		}
		for _, info := range infos {
			calendar, active := "-", "-"
			if info.CalendarDays != nil {
				calendar = fmt.Sprintf("%d", *info.CalendarDays)
			}
			if info.ActiveDays != nil {
				active = fmt.Sprintf("%d", *info.ActiveDays)
			}
			fmt.Printf("%-12s %-18s calendar=%-4s active=%s\n", info.IssueKey, info.EndLogic, calendar, active)
		}
		fmt.Printf("%d cached cycles\n", len(infos))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [issue-key|quarter]",
	Short: "Clear the cache, optionally scoped to one issue or quarter",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return orch.ClearAll()
		}

		target := args[0]
		if q, err := cycle.ParseQuarter(target); err == nil {
			log.Info().Str("quarter", q.String()).Msg("Clearing quarter")
			return orch.ClearQuarter(q)
		}
		log.Info().Str("issue", target).Msg("Clearing issue")
		return orch.ClearIssue(target)
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
