// Package visuals renders dashboard views as Mermaid charts for text clients.
package visuals

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gitlab-pulse/internal/stats"
)

// maxBars keeps bar charts readable in a chat transcript.
const maxBars = 20

func quote(s string) string {
	return fmt.Sprintf("\"%s\"", strings.ReplaceAll(s, "\"", "'"))
}

// yMax leaves some headroom above the tallest value.
func yMax(v float64) int {
	return int(math.Ceil(v*1.2)) + 1
}

// GenerateHeatmapChart sums a commit heatmap into weekly bars.
func GenerateHeatmapChart(h stats.Heatmap) string {
	if h.Total == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0

	for i := 0; i < len(h.Days); i += 7 {
		end := min(i+7, len(h.Days))
		sum := 0
		for _, d := range h.Days[i:end] {
			sum += d.Count
		}
		label := h.Days[i].Date
		if t, err := time.Parse("2006-01-02", label); err == nil {
			label = t.Format("Jan02")
		}
		labels = append(labels, quote(label))
		values = append(values, fmt.Sprintf("%d", sum))
		maxVal = max(maxVal, sum)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Commit Activity (Weekly)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Commits\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateVelocityChart draws merged merge requests as bars and opened ones as
// a line, one point per week.
func GenerateVelocityChart(weeks []stats.VelocityWeek) string {
	if len(weeks) == 0 {
		return ""
	}

	var labels, opened, merged []string
	maxVal := 0
	for _, w := range weeks {
		labels = append(labels, quote(w.Week))
		opened = append(opened, fmt.Sprintf("%d", w.Opened))
		merged = append(merged, fmt.Sprintf("%d", w.Merged))
		maxVal = max(maxVal, w.Opened, w.Merged)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Merge Request Velocity\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Merge Requests\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(merged, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(opened, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateLeaderboardChart shows commits plus merge requests per contributor.
func GenerateLeaderboardChart(contributors []stats.Contributor) string {
	if len(contributors) == 0 {
		return ""
	}

	var labels, values []string
	maxVal := 0
	for _, c := range contributors[:min(len(contributors), maxBars)] {
		name := c.Name
		if name == "" {
			name = c.Email
		}
		labels = append(labels, quote(name))
		values = append(values, fmt.Sprintf("%d", c.Total()))
		maxVal = max(maxVal, c.Total())
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Top Contributors\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Commits + MRs\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func GenerateEnergyChart(projects []stats.ProjectEnergy) string {
	if len(projects) == 0 {
		return ""
	}

	var labels, values []string
	maxVal := 0
	for _, p := range projects[:min(len(projects), maxBars)] {
		labels = append(labels, quote(p.Name))
		values = append(values, fmt.Sprintf("%d", p.Energy))
		maxVal = max(maxVal, p.Energy)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Project Energy\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Energy\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateAgingChart shows the age of the oldest open issues.
func GenerateAgingChart(issues []stats.AgingIssue) string {
	if len(issues) == 0 {
		return ""
	}

	var labels, values []string
	maxVal := 0
	for _, is := range issues[:min(len(issues), maxBars)] {
		labels = append(labels, quote(fmt.Sprintf("%s#%d", is.Project, is.IID)))
		values = append(values, fmt.Sprintf("%d", is.AgeDays))
		maxVal = max(maxVal, is.AgeDays)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Issue Aging (Oldest Open Issues)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Age (Days)\" 0 --> %d\n", yMax(float64(maxVal))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GeneratePipelinePie splits pipelines by outcome. Empty slices are omitted.
func GeneratePipelinePie(s stats.PipelineStats) string {
	if s.Total == 0 {
		return ""
	}

	slices := []struct {
		label string
		n     int
	}{
		{"Success", s.Successful},
		{"Failed", s.Failed},
		{"Running", s.Running},
		{"Pending", s.Pending},
		{"Canceled", s.Canceled},
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie title Pipelines (%.0f%% success)\n", s.SuccessRate))
	for _, sl := range slices {
		if sl.n > 0 {
			sb.WriteString(fmt.Sprintf("    \"%s\" : %d\n", sl.label, sl.n))
		}
	}
	sb.WriteString("```")
	return sb.String()
}
