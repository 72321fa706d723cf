package commands

import (
	"gitlab-pulse/internal/cache"
	"gitlab-pulse/internal/config"
	"gitlab-pulse/internal/dashboard"
	"gitlab-pulse/internal/dedup"
	"gitlab-pulse/internal/gitlab"
	"gitlab-pulse/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "gitlab-pulse",
	Short: "GitLab Pulse turns GitLab activity into engineering dashboards",
	Long: `A read-only analytics layer over the GitLab REST API: commit heatmaps, contributor
leaderboards, project energy, pipeline health and merge request flow, served over HTTP,
as MCP tools, or as a one-off report.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		logging.WithInstance(cfg.GitLab.BaseURL)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("GitLab Pulse starting")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd, mcpCmd, reportCmd)
}

// components is the object graph shared by every command. The cache and
// deduplicator are per process and injected into the client.
type components struct {
	store     *cache.Cache[[]byte]
	client    *gitlab.Client
	dashboard *dashboard.Service
}

func build(cfg *config.AppConfig) *components {
	store := cache.New[[]byte]("gitlab", cache.WithDefaultTTL(cfg.CacheTTL))
	client := gitlab.NewClient(cfg.GitLab, store, dedup.New[[]byte](nil, dedup.DefaultGrace))
	svc := dashboard.New(client, nil, dashboard.Options{
		SmallBatch: cfg.SmallBatch,
		LargeBatch: cfg.LargeBatch,
	})
	return &components{store: store, client: client, dashboard: svc}
}
