package stats

import (
	"cmp"
	"slices"
	"time"

	"gitlab-pulse/internal/gitlab"
)

type PipelineStats struct {
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	Running     int     `json:"running"`
	Pending     int     `json:"pending"`
	Canceled    int     `json:"canceled"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`
}

// SummarizePipelines counts pipelines by status. The success rate is
// successful/total*100 and 0 for an empty list.
func SummarizePipelines(pipelines []gitlab.Pipeline) PipelineStats {
	s := PipelineStats{Total: len(pipelines)}
	for _, p := range pipelines {
		switch p.Status {
		case gitlab.PipelineSuccess:
			s.Successful++
		case gitlab.PipelineFailed:
			s.Failed++
		case gitlab.PipelineRunning:
			s.Running++
		case gitlab.PipelinePending:
			s.Pending++
		case gitlab.PipelineCanceled:
			s.Canceled++
		}
	}
	s.SuccessRate = Percent(s.Successful, s.Total)
	return s
}

// CreatedSince keeps pipelines created at or after since.
func CreatedSince(pipelines []gitlab.Pipeline, since time.Time) []gitlab.Pipeline {
	var out []gitlab.Pipeline
	for _, p := range pipelines {
		if !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out
}

// AverageDurationMinutes averages the positive durations, in minutes.
func AverageDurationMinutes(details []gitlab.PipelineDetail) (float64, bool) {
	var mins []float64
	for _, d := range details {
		if d.Duration != nil && *d.Duration > 0 {
			mins = append(mins, *d.Duration/60)
		}
	}
	return Mean(mins)
}

type ProjectFailures struct {
	ProjectID int    `json:"project_id"`
	Name      string `json:"name"`
	Failed    int    `json:"failed"`
}

// FailedByProject counts failed pipelines per project, most failures first.
func FailedByProject(pipelines []gitlab.Pipeline, names map[int]string) []ProjectFailures {
	index := make(map[int]int)
	var out []ProjectFailures
	for _, p := range pipelines {
		if p.Status != gitlab.PipelineFailed {
			continue
		}
		i, ok := index[p.ProjectID]
		if !ok {
			i = len(out)
			index[p.ProjectID] = i
			out = append(out, ProjectFailures{ProjectID: p.ProjectID, Name: names[p.ProjectID]})
		}
		out[i].Failed++
	}
	slices.SortStableFunc(out, func(a, b ProjectFailures) int {
		return cmp.Compare(b.Failed, a.Failed)
	})
	return out
}

// NewestFirst returns up to limit pipelines ordered by creation time, newest
// first. A non-positive limit keeps everything.
func NewestFirst(pipelines []gitlab.Pipeline, limit int) []gitlab.Pipeline {
	out := slices.Clone(pipelines)
	slices.SortStableFunc(out, func(a, b gitlab.Pipeline) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
