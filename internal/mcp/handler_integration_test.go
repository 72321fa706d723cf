package mcp

import (
	"context"
	"slices"
	"strings"
	"testing"

	"gitlab-pulse/internal/stats"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func connect(t *testing.T, d Dashboard) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := NewServer(d, true, "test").Build().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestServer_ListsTools(t *testing.T) {
	session := connect(t, &mockDashboard{})

	res, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{
		"pulse_energy_map", "pulse_health", "pulse_heatmap", "pulse_issue_aging",
		"pulse_leaderboard", "pulse_overview", "pulse_pipeline_metrics", "pulse_velocity",
	}
	if !slices.Equal(names, want) {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func TestServer_CallEnergyMap(t *testing.T) {
	var gotSort string
	session := connect(t, &mockDashboard{
		energy: func(sortBy string) ([]stats.ProjectEnergy, error) {
			gotSort = sortBy
			return []stats.ProjectEnergy{stats.NewProjectEnergy(1, "api", "", 10, 2, 3)}, nil
		},
	})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "pulse_energy_map",
		Arguments: map[string]any{"sort": stats.SortByName},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("CallTool() returned a tool error: %+v", res.Content)
	}
	if gotSort != stats.SortByName {
		t.Errorf("EnergyMap(%q), want %q", gotSort, stats.SortByName)
	}
	body := text(t, res)
	if !strings.Contains(body, `"name": "api"`) || !strings.Contains(body, "Project Energy") {
		t.Errorf("text = %s, want project JSON and chart", body)
	}
}
