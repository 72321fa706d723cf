package stats

import (
	"time"

	"gitlab-pulse/internal/gitlab"
)

// VelocityWeeks is how far back the velocity chart reaches.
const VelocityWeeks = 12

// CycleTimeHours returns the hours between creation and merge. It is
// undefined for a merge request that has not been merged.
func CycleTimeHours(mr gitlab.MergeRequest) (float64, bool) {
	if mr.MergedAt == nil {
		return 0, false
	}
	return max(0, mr.MergedAt.Sub(mr.CreatedAt).Hours()), true
}

func cycleTimes(mrs []gitlab.MergeRequest) []float64 {
	var hours []float64
	for _, mr := range mrs {
		if mr.State != gitlab.StateMerged {
			continue
		}
		if h, ok := CycleTimeHours(mr); ok {
			hours = append(hours, h)
		}
	}
	return hours
}

// AverageCycleTime is the mean cycle time of merged merge requests. It is
// undefined, not zero, when none of them has a merge time.
func AverageCycleTime(mrs []gitlab.MergeRequest) (float64, bool) {
	return Mean(cycleTimes(mrs))
}

type MergeRequestStats struct {
	Opened           int      `json:"opened"`
	Merged           int      `json:"merged"`
	Closed           int      `json:"closed"`
	Total            int      `json:"total"`
	AvgCycleHours    *float64 `json:"avg_cycle_hours"`
	MedianCycleHours *float64 `json:"median_cycle_hours"`
}

func SummarizeMergeRequests(mrs []gitlab.MergeRequest) MergeRequestStats {
	s := MergeRequestStats{Total: len(mrs)}
	for _, mr := range mrs {
		switch mr.State {
		case gitlab.StateOpened:
			s.Opened++
		case gitlab.StateMerged:
			s.Merged++
		case gitlab.StateClosed:
			s.Closed++
		}
	}
	hours := cycleTimes(mrs)
	s.AvgCycleHours = optional(Mean(hours))
	s.MedianCycleHours = optional(Median(hours))
	return s
}

type VelocityWeek struct {
	Week   string    `json:"week"`
	Start  time.Time `json:"start"`
	Opened int       `json:"opened"`
	Merged int       `json:"merged"`
}

// Velocity counts merge requests opened and merged in each week from the week
// containing now minus the given number of weeks up to the current week.
// Weeks start on Monday (ISO 8601) in the location of now, not on Sunday, so
// bucket boundaries differ by a day from Sunday-based week charts.
func Velocity(mrs []gitlab.MergeRequest, now time.Time, weeks int) []VelocityWeek {
	if weeks <= 0 {
		weeks = VelocityWeeks
	}
	w := NewWindow(now.AddDate(0, 0, -7*weeks), now, "week")
	starts := w.Subdivide()

	out := make([]VelocityWeek, len(starts))
	for i, s := range starts {
		out[i] = VelocityWeek{Week: w.GenerateLabel(s), Start: s}
	}
	for _, mr := range mrs {
		if idx := w.FindBucketIndex(mr.CreatedAt); idx >= 0 && idx < len(out) {
			out[idx].Opened++
		}
		if mr.MergedAt != nil {
			if idx := w.FindBucketIndex(*mr.MergedAt); idx >= 0 && idx < len(out) {
				out[idx].Merged++
			}
		}
	}
	return out
}

// ReviewStats approximates review activity from merged merge requests: the
// number of distinct authors whose work was merged, and how long it took.
type ReviewStats struct {
	Reviewers     int      `json:"reviewers"`
	Merged        int      `json:"merged"`
	AvgCycleHours *float64 `json:"avg_cycle_hours"`
}

func SummarizeReviews(mrs []gitlab.MergeRequest) ReviewStats {
	authors := make(map[int]struct{})
	s := ReviewStats{}
	for _, mr := range mrs {
		if mr.State != gitlab.StateMerged {
			continue
		}
		s.Merged++
		authors[mr.Author.ID] = struct{}{}
	}
	s.Reviewers = len(authors)
	s.AvgCycleHours = optional(AverageCycleTime(mrs))
	return s
}
