package commands

import (
	"context"
	"path/filepath"

	"dcycle/internal/cache"
	"dcycle/internal/config"
	"dcycle/internal/cycle"
	"dcycle/internal/logging"
	"dcycle/internal/mcp"
	"dcycle/internal/orchestrator"
	"dcycle/internal/tracker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose  bool
	snapshot string

	cfg   *config.AppConfig
	store *cache.Store
	orch  *orchestrator.Orchestrator
)

var rootCmd = &cobra.Command{
	Use:   "dcycle",
	Short: "dcycle is a discovery cycle-time analytics MCP server",
	Long: `An MCP server that derives discovery cycle times from issue tracker change
histories: when discovery started and ended, calendar vs actively-worked days,
inactive spans and per-quarter box-plot statistics.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		var client tracker.Client
		if snapshot != "" {
			client, err = tracker.NewFileClient(snapshot)
			if err != nil {
				log.Fatal().Err(err).Str("path", snapshot).Msg("Failed to open snapshot")
			}
		} else {
			client = tracker.NewClient(cfg.Tracker)
		}

		store, err = cache.Open(filepath.Join(cfg.CacheDir, "cycles.db"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open cycle cache")
		}

		opts := cycle.Options{HoldOverridesDiscoveryStatus: cfg.HoldOverridesDiscovery}
		orch = orchestrator.New(client, store, cfg.Query, opts)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("dcycle starting")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		server := mcp.NewServer(orch, cfg)
		if err := server.Serve(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("MCP server exited")
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&snapshot, "snapshot", "", "serve from a JSONL issue snapshot instead of the live tracker")
}
