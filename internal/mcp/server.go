// Package mcp exposes the dashboard views as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"

	"gitlab-pulse/internal/dashboard"
	"gitlab-pulse/internal/stats"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Dashboard is the part of the dashboard service the tools read from.
type Dashboard interface {
	Overview(ctx context.Context) (*dashboard.Overview, error)
	Health(ctx context.Context) (stats.Health, error)
	Heatmap(ctx context.Context, projectID int) (stats.Heatmap, error)
	Leaderboard(ctx context.Context, period stats.Period, limit int) ([]stats.Contributor, error)
	EnergyMap(ctx context.Context, sortBy string) ([]stats.ProjectEnergy, error)
	Velocity(ctx context.Context) ([]stats.VelocityWeek, error)
	PipelineMetrics(ctx context.Context) (*dashboard.PipelineMetrics, error)
	IssueAging(ctx context.Context) (*dashboard.IssueAging, error)
}

// Server holds the state for the MCP server.
type Server struct {
	dashboard Dashboard
	charts    bool
	version   string
}

// NewServer creates a new MCP server. With charts on, tool results carry
// Mermaid charts after the JSON payload.
func NewServer(d Dashboard, charts bool, version string) *Server {
	return &Server{dashboard: d, charts: charts, version: version}
}

// Build returns the protocol server with every tool registered.
func (s *Server) Build() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gitlab-pulse", Version: s.version}, nil)
	s.registerTools(server)
	return server
}

// Serve runs the stdio loop until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Bool("charts", s.charts).Msg("MCP server listening on stdio")
	return s.Build().Run(ctx, &mcp.StdioTransport{})
}
