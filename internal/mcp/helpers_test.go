package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gitlab-pulse/internal/dashboard"
	"gitlab-pulse/internal/stats"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mockDashboard struct {
	Dashboard
	overview    func() (*dashboard.Overview, error)
	heatmap     func(projectID int) (stats.Heatmap, error)
	leaderboard func(period stats.Period, limit int) ([]stats.Contributor, error)
	energy      func(sortBy string) ([]stats.ProjectEnergy, error)
	aging       func() (*dashboard.IssueAging, error)
}

func (m *mockDashboard) Overview(context.Context) (*dashboard.Overview, error) {
	return m.overview()
}

func (m *mockDashboard) Heatmap(_ context.Context, projectID int) (stats.Heatmap, error) {
	return m.heatmap(projectID)
}

func (m *mockDashboard) Leaderboard(_ context.Context, period stats.Period, limit int) ([]stats.Contributor, error) {
	return m.leaderboard(period, limit)
}

func (m *mockDashboard) EnergyMap(_ context.Context, sortBy string) ([]stats.ProjectEnergy, error) {
	return m.energy(sortBy)
}

func (m *mockDashboard) IssueAging(context.Context) (*dashboard.IssueAging, error) {
	return m.aging()
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("result = %+v, want one content item", res)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestResult_Charts(t *testing.T) {
	tests := []struct {
		name      string
		charts    bool
		chart     string
		wantChart bool
	}{
		{"Enabled", true, "```mermaid\npie\n```", true},
		{"Disabled", false, "```mermaid\npie\n```", false},
		{"EnabledNoChart", true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(nil, tt.charts, "test")
			res, _, err := s.result(map[string]int{"total": 3}, tt.chart)
			if err != nil {
				t.Fatalf("result() error = %v", err)
			}
			got := text(t, res)
			if !strings.HasPrefix(got, "{\n  \"total\": 3\n}") {
				t.Errorf("text = %q, want indented JSON first", got)
			}
			if has := strings.Contains(got, "```mermaid"); has != tt.wantChart {
				t.Errorf("chart present = %v, want %v", has, tt.wantChart)
			}
		})
	}
}

func TestHandleLeaderboard_Defaults(t *testing.T) {
	var gotPeriod stats.Period
	var gotLimit int
	s := NewServer(&mockDashboard{
		leaderboard: func(p stats.Period, limit int) ([]stats.Contributor, error) {
			gotPeriod, gotLimit = p, limit
			return []stats.Contributor{{Email: "a@example.com", Commits: 3}}, nil
		},
	}, false, "test")

	res, _, err := s.handleLeaderboard(context.Background(), nil, LeaderboardInput{Period: "bogus"})
	if err != nil {
		t.Fatalf("handleLeaderboard() error = %v", err)
	}
	if gotPeriod != stats.PeriodMonth || gotLimit != defaultLeaderboardLimit {
		t.Errorf("Leaderboard(%q, %d), want (%q, %d)", gotPeriod, gotLimit, stats.PeriodMonth, defaultLeaderboardLimit)
	}
	if !strings.Contains(text(t, res), "a@example.com") {
		t.Errorf("text does not list the contributor: %s", text(t, res))
	}
}

func TestHandleHeatmap_PassesProject(t *testing.T) {
	var got int
	s := NewServer(&mockDashboard{
		heatmap: func(projectID int) (stats.Heatmap, error) {
			got = projectID
			return stats.Heatmap{Days: []stats.DayCount{{Date: "2024-06-01", Count: 2, Level: 4}}, Total: 2, Max: 2}, nil
		},
	}, true, "test")

	res, _, err := s.handleHeatmap(context.Background(), nil, HeatmapInput{ProjectID: 7})
	if err != nil {
		t.Fatalf("handleHeatmap() error = %v", err)
	}
	if got != 7 {
		t.Errorf("Heatmap(%d), want 7", got)
	}
	if !strings.Contains(text(t, res), "xychart-beta") {
		t.Errorf("text has no chart: %s", text(t, res))
	}
}

func TestHandlers_PropagateErrors(t *testing.T) {
	boom := errors.New("GitLab API error: 503 Service Unavailable")
	s := NewServer(&mockDashboard{
		overview: func() (*dashboard.Overview, error) { return nil, boom },
		energy:   func(string) ([]stats.ProjectEnergy, error) { return nil, boom },
		aging:    func() (*dashboard.IssueAging, error) { return nil, boom },
	}, false, "test")
	ctx := context.Background()

	if _, _, err := s.handleOverview(ctx, nil, NoInput{}); !errors.Is(err, boom) {
		t.Errorf("handleOverview() error = %v, want %v", err, boom)
	}
	if _, _, err := s.handleEnergyMap(ctx, nil, EnergyInput{}); !errors.Is(err, boom) {
		t.Errorf("handleEnergyMap() error = %v, want %v", err, boom)
	}
	if _, _, err := s.handleIssueAging(ctx, nil, NoInput{}); !errors.Is(err, boom) {
		t.Errorf("handleIssueAging() error = %v, want %v", err, boom)
	}
}
