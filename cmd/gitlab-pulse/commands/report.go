package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gitlab-pulse/internal/dashboard"
	"gitlab-pulse/internal/stats"
	"gitlab-pulse/internal/visuals"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	reportFormat string
	reportPeriod string
	reportLimit  int
)

// report is the snapshot printed by the report command.
type report struct {
	Overview    *dashboard.Overview  `json:"overview"`
	Leaderboard []stats.Contributor  `json:"leaderboard"`
	Velocity    []stats.VelocityWeek `json:"velocity"`
}

// reportSource is what the report reads from the dashboard.
type reportSource interface {
	Overview(ctx context.Context) (*dashboard.Overview, error)
	Leaderboard(ctx context.Context, period stats.Period, limit int) ([]stats.Contributor, error)
	Velocity(ctx context.Context) ([]stats.VelocityWeek, error)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print an overview, the health score and the leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		r, err := collectReport(cmd.Context(), build(cfg).dashboard, stats.ParsePeriod(reportPeriod), reportLimit)
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), r, reportFormat)
	},
}

func collectReport(ctx context.Context, src reportSource, period stats.Period, limit int) (*report, error) {
	r := &report{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.Overview, err = src.Overview(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Leaderboard, err = src.Leaderboard(ctx, period, limit)
		return err
	})
	g.Go(func() (err error) {
		r.Velocity, err = src.Velocity(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}
	return r, nil
}

func writeReport(w io.Writer, r *report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "mermaid":
		return writeMarkdown(w, r)
	default:
		return fmt.Errorf("unknown format %q: want json or mermaid", format)
	}
}

func writeMarkdown(w io.Writer, r *report) error {
	var sb strings.Builder
	o := r.Overview
	sb.WriteString("# GitLab Pulse\n\n")
	fmt.Fprintf(&sb, "Health: **%d** (%s)\n\n", o.Health.Score, o.Health.Label)
	fmt.Fprintf(&sb, "- Projects: %d\n", o.Projects)
	fmt.Fprintf(&sb, "- Open merge requests: %d\n", o.OpenMRs)
	fmt.Fprintf(&sb, "- Merged merge requests: %d\n", o.MergedMRs)
	cycle := o.AvgCycle
	if cycle == "" {
		cycle = "n/a"
	}
	fmt.Fprintf(&sb, "- Average cycle time: %s\n", cycle)
	fmt.Fprintf(&sb, "- Failed pipelines: %d\n", o.FailedPipelines)

	for _, chart := range []string{
		visuals.GeneratePipelinePie(o.Pipelines),
		visuals.GenerateLeaderboardChart(r.Leaderboard),
		visuals.GenerateVelocityChart(r.Velocity),
	} {
		if chart != "" {
			sb.WriteString("\n" + chart + "\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "mermaid", "output format: json or mermaid")
	reportCmd.Flags().StringVar(&reportPeriod, "period", "month", "leaderboard period: week, month or all")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 10, "leaderboard size")
}
