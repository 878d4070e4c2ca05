package commands

import (
	"dcycle/internal/dashboard"

	"github.com/spf13/cobra"
)

var dashboardAddr string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the local web dashboard",
	Long:  `Serves the cycle-time dashboard on a local port and opens the browser at it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := dashboardAddr
		if addr == "" {
			addr = cfg.DashboardAddr
		}
		srv, err := dashboard.NewServer(orch)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(addr)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardAddr, "addr", "", "listen address (default from DASHBOARD_ADDR)")
	rootCmd.AddCommand(dashboardCmd)
}
