package commands

import (
	"os"
	"os/signal"
	"syscall"

	"gitlab-pulse/internal/mcp"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := build(cfg)
		go c.store.Run(ctx, cfg.SweepInterval)
		return mcp.NewServer(c.dashboard, cfg.EnableMermaidCharts, Version).Serve(ctx)
	},
}
