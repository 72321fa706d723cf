package stats

import (
	"time"

	"gitlab-pulse/internal/gitlab"
)

// StaleAfter is how long a merge request may stay open before it counts as stale.
const StaleAfter = 7 * 24 * time.Hour

// HealthInput gathers the four signals the health score looks at.
type HealthInput struct {
	SuccessRate     float64 `json:"success_rate"`
	OpenMRs         int     `json:"open_merge_requests"`
	FailedPipelines int     `json:"failed_pipelines"`
	StaleMRs        int     `json:"stale_merge_requests"`
}

type Penalty struct {
	Reason string `json:"reason"`
	Points int    `json:"points"`
}

type Health struct {
	Score     int         `json:"score"`
	Label     string      `json:"label"`
	Input     HealthInput `json:"input"`
	Penalties []Penalty   `json:"penalties"`
}

const (
	HealthExcellent      = "excellent"
	HealthGood           = "good"
	HealthNeedsAttention = "needs attention"
)

// HealthScore starts from 100 and subtracts a fixed penalty for every
// threshold crossed. The result is clamped to [0, 100].
func HealthScore(in HealthInput) Health {
	h := Health{Input: in, Penalties: []Penalty{}}
	add := func(reason string, points int) {
		h.Penalties = append(h.Penalties, Penalty{Reason: reason, Points: points})
	}

	switch {
	case in.SuccessRate < 80:
		add("pipeline success rate below 80%", 20)
	case in.SuccessRate < 90:
		add("pipeline success rate below 90%", 10)
	}

	switch {
	case in.OpenMRs > 20:
		add("more than 20 open merge requests", 15)
	case in.OpenMRs > 10:
		add("more than 10 open merge requests", 5)
	}

	if in.FailedPipelines > 5 {
		add("more than 5 failed pipelines", 10)
	}
	if in.StaleMRs > 3 {
		add("more than 3 merge requests open over a week", 10)
	}

	score := 100
	for _, p := range h.Penalties {
		score -= p.Points
	}
	h.Score = max(0, min(100, score))
	h.Label = HealthLabel(h.Score)
	return h
}

func HealthLabel(score int) string {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	default:
		return HealthNeedsAttention
	}
}

// StaleMergeRequests counts open merge requests created more than a week before now.
func StaleMergeRequests(mrs []gitlab.MergeRequest, now time.Time) int {
	n := 0
	for _, mr := range mrs {
		if mr.State == gitlab.StateOpened && now.Sub(mr.CreatedAt) > StaleAfter {
			n++
		}
	}
	return n
}

// NewHealthInput derives the health signals from merge requests and pipelines.
func NewHealthInput(mrs []gitlab.MergeRequest, pipelines []gitlab.Pipeline, now time.Time) HealthInput {
	ps := SummarizePipelines(pipelines)
	open := 0
	for _, mr := range mrs {
		if mr.State == gitlab.StateOpened {
			open++
		}
	}
	return HealthInput{
		SuccessRate:     ps.SuccessRate,
		OpenMRs:         open,
		FailedPipelines: ps.Failed,
		StaleMRs:        StaleMergeRequests(mrs, now),
	}
}
