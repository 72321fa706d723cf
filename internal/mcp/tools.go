package mcp

import (
	"context"

	"gitlab-pulse/internal/stats"
	"gitlab-pulse/internal/visuals"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type NoInput struct{}

type HeatmapInput struct {
	ProjectID int `json:"project_id,omitempty" jsonschema:"Optional GitLab project ID. Omit for all projects."`
}

type LeaderboardInput struct {
	Period string `json:"period,omitempty" jsonschema:"One of week, month or all. Defaults to month."`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of contributors. Defaults to 10."`
}

type EnergyInput struct {
	Sort string `json:"sort,omitempty" jsonschema:"Sort by energy (default) or name."`
}

const defaultLeaderboardLimit = 10

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_overview",
		Description: "Headline numbers across all projects: open and merged merge requests, average cycle time, pipeline counts and the team health score.",
	}, s.handleOverview)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_health",
		Description: "Team health score (0-100) with the penalties that were applied. Looks at pipeline success rate, open and stale merge requests and failed pipelines.",
	}, s.handleHealth)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_heatmap",
		Description: "Commits per day over the last 52 weeks, for all projects or one project.",
	}, s.handleHeatmap)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_leaderboard",
		Description: "Top contributors ranked by commits plus merge requests in the given period.",
	}, s.handleLeaderboard)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_energy_map",
		Description: "Weighted activity index per project from the last week of commits, merge requests and open issues. Only meaningful relative to other projects.",
	}, s.handleEnergyMap)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_velocity",
		Description: "Merge requests opened and merged per week over the last 12 weeks.",
	}, s.handleVelocity)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_pipeline_metrics",
		Description: "Pipeline counts by status, success rate and average duration of recent pipelines.",
	}, s.handlePipelineMetrics)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_issue_aging",
		Description: "Open issues older than a week, oldest first, with a summary of how many exceed 30 and 90 days.",
	}, s.handleIssueAging)
}

func (s *Server) handleOverview(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	o, err := s.dashboard.Overview(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.result(o, visuals.GeneratePipelinePie(o.Pipelines))
}

func (s *Server) handleHealth(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	h, err := s.dashboard.Health(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.result(h, "")
}

func (s *Server) handleHeatmap(ctx context.Context, _ *mcp.CallToolRequest, in HeatmapInput) (*mcp.CallToolResult, any, error) {
	h, err := s.dashboard.Heatmap(ctx, in.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return s.result(h, visuals.GenerateHeatmapChart(h))
}

func (s *Server) handleLeaderboard(ctx context.Context, _ *mcp.CallToolRequest, in LeaderboardInput) (*mcp.CallToolResult, any, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	period := stats.ParsePeriod(in.Period)
	top, err := s.dashboard.Leaderboard(ctx, period, limit)
	if err != nil {
		return nil, nil, err
	}
	data := map[string]any{"period": period, "contributors": top}
	return s.result(data, visuals.GenerateLeaderboardChart(top))
}

func (s *Server) handleEnergyMap(ctx context.Context, _ *mcp.CallToolRequest, in EnergyInput) (*mcp.CallToolResult, any, error) {
	projects, err := s.dashboard.EnergyMap(ctx, in.Sort)
	if err != nil {
		return nil, nil, err
	}
	return s.result(projects, visuals.GenerateEnergyChart(projects))
}

func (s *Server) handleVelocity(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	weeks, err := s.dashboard.Velocity(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.result(weeks, visuals.GenerateVelocityChart(weeks))
}

func (s *Server) handlePipelineMetrics(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	m, err := s.dashboard.PipelineMetrics(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.result(m, visuals.GeneratePipelinePie(m.Stats))
}

func (s *Server) handleIssueAging(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	a, err := s.dashboard.IssueAging(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.result(a, visuals.GenerateAgingChart(a.Issues))
}
