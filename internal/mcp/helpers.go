package mcp

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// result renders data as indented JSON text, followed by chart when charts
// are enabled and the chart is not empty.
func (s *Server) result(data any, chart string) (*mcp.CallToolResult, any, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	text := string(out)
	if s.charts && chart != "" {
		text += "\n\n" + chart
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}
