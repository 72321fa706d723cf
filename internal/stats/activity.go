package stats

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"gitlab-pulse/internal/gitlab"
)

// Period selects the reporting range of the overview statistics.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod falls back to month for unknown values.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodWeek, PeriodAll:
		return Period(s)
	default:
		return PeriodMonth
	}
}

// DateRange returns the since/until pair for a period ending at now. "all"
// is capped at twelve months.
func DateRange(p Period, now time.Time) (since, until time.Time) {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now
	case PeriodMonth:
		return now.AddDate(0, -1, 0), now
	default:
		return now.AddDate(0, -12, 0), now
	}
}

// ActiveProjects counts projects with activity inside the period. Every
// project counts for "all".
func ActiveProjects(projects []gitlab.Project, p Period, now time.Time) int {
	if p == PeriodAll {
		return len(projects)
	}
	since, _ := DateRange(p, now)
	n := 0
	for _, pr := range projects {
		if !pr.Activity().Before(since) {
			n++
		}
	}
	return n
}

// FormatDuration renders hours as "5h", "2d" or "2d 3h".
func FormatDuration(hours float64) string {
	if hours < 24 {
		return fmt.Sprintf("%dh", int(math.Round(hours)))
	}
	days := int(math.Floor(hours / 24))
	rest := int(math.Round(math.Mod(hours, 24)))
	if rest == 24 {
		days++
		rest = 0
	}
	if rest == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, rest)
}

// Event kinds of the activity feed.
const (
	EventMergeRequest = "merge_request"
	EventPipeline     = "pipeline"
)

type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Project   string    `json:"project,omitempty"`
	Author    string    `json:"author,omitempty"`
	Status    string    `json:"status"`
	Ref       string    `json:"ref,omitempty"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityFeed merges merge requests and pipelines into one timeline, newest
// first, truncated to limit when limit is positive.
func ActivityFeed(mrs []gitlab.MergeRequest, pipelines []gitlab.Pipeline, names map[int]string, limit int) []Event {
	return timeline(mrs, pipelines, names, limit, func(gitlab.Pipeline) bool { return true })
}

// CodePulse is the feed restricted to pipelines that are running or passed.
func CodePulse(mrs []gitlab.MergeRequest, pipelines []gitlab.Pipeline, names map[int]string, limit int) []Event {
	return timeline(mrs, pipelines, names, limit, func(p gitlab.Pipeline) bool {
		return p.Status == gitlab.PipelineRunning || p.Status == gitlab.PipelineSuccess
	})
}

func timeline(mrs []gitlab.MergeRequest, pipelines []gitlab.Pipeline, names map[int]string, limit int, keep func(gitlab.Pipeline) bool) []Event {
	events := make([]Event, 0, len(mrs)+len(pipelines))
	for _, mr := range mrs {
		events = append(events, Event{
			ID:        fmt.Sprintf("mr-%d", mr.ID),
			Kind:      EventMergeRequest,
			Title:     mr.Title,
			Project:   names[mr.ProjectID],
			Author:    mr.Author.Name,
			Status:    mr.State,
			URL:       mr.WebURL,
			Timestamp: mr.CreatedAt,
		})
	}
	for _, p := range pipelines {
		if !keep(p) {
			continue
		}
		events = append(events, Event{
			ID:        fmt.Sprintf("pipeline-%d", p.ID),
			Kind:      EventPipeline,
			Title:     fmt.Sprintf("Pipeline %s on %s", p.Status, p.Ref),
			Project:   names[p.ProjectID],
			Status:    p.Status,
			Ref:       p.Ref,
			URL:       p.WebURL,
			Timestamp: p.CreatedAt,
		})
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

// FallbackBranch receives commits when a project's default branch is not
// among its listed branches.
const FallbackBranch = "main"

// AttributedBranch names the branch a project's commits are counted against.
// The commit listing carries no branch membership, so every commit goes to
// the default branch. This is an approximation.
func AttributedBranch(p gitlab.Project, branches []gitlab.Branch) string {
	for _, b := range branches {
		if b.Name == p.DefaultBranch {
			return b.Name
		}
	}
	return FallbackBranch
}

type BranchCommits struct {
	Branch  string `json:"branch"`
	Commits int    `json:"commits"`
}

// RankBranches orders branch totals by commits, descending, then by name.
func RankBranches(totals map[string]int) []BranchCommits {
	out := make([]BranchCommits, 0, len(totals))
	for b, n := range totals {
		out = append(out, BranchCommits{Branch: b, Commits: n})
	}
	slices.SortFunc(out, func(a, b BranchCommits) int {
		if c := cmp.Compare(b.Commits, a.Commits); c != 0 {
			return c
		}
		return cmp.Compare(a.Branch, b.Branch)
	})
	return out
}

type RepoActivity struct {
	ProjectID int    `json:"project_id"`
	Name      string `json:"name"`
	WebURL    string `json:"web_url"`
	Commits   int    `json:"commits"`
}

// RankActiveRepos drops repositories without commits and sorts the rest by
// commit count, descending.
func RankActiveRepos(in []RepoActivity) []RepoActivity {
	out := make([]RepoActivity, 0, len(in))
	for _, r := range in {
		if r.Commits > 0 {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b RepoActivity) int {
		return cmp.Compare(b.Commits, a.Commits)
	})
	return out
}
