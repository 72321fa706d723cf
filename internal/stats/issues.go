package stats

import (
	"cmp"
	"math"
	"slices"
	"time"

	"gitlab-pulse/internal/gitlab"
)

type IssueStats struct {
	Opened int `json:"opened"`
	Closed int `json:"closed"`
	Total  int `json:"total"`
}

func SummarizeIssues(issues []gitlab.Issue) IssueStats {
	s := IssueStats{Total: len(issues)}
	for _, i := range issues {
		switch i.State {
		case gitlab.StateOpened:
			s.Opened++
		case gitlab.StateClosed:
			s.Closed++
		}
	}
	return s
}

// Aging thresholds in whole days.
const (
	AgingMinDays = 7
	AgingOldDays = 30
	AgingVeryOld = 90
)

type AgingIssue struct {
	ID        int       `json:"id"`
	IID       int       `json:"iid"`
	ProjectID int       `json:"project_id"`
	Project   string    `json:"project"`
	Title     string    `json:"title"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
	AgeDays   int       `json:"age_days"`
}

// AgingIssues keeps open issues older than a week and sorts them oldest first.
func AgingIssues(issues []gitlab.Issue, names map[int]string, now time.Time) []AgingIssue {
	var out []AgingIssue
	for _, i := range issues {
		if i.State != gitlab.StateOpened {
			continue
		}
		age := int(now.Sub(i.CreatedAt).Hours() / 24)
		if age <= AgingMinDays {
			continue
		}
		out = append(out, AgingIssue{
			ID:        i.ID,
			IID:       i.IID,
			ProjectID: i.ProjectID,
			Project:   names[i.ProjectID],
			Title:     i.Title,
			WebURL:    i.WebURL,
			CreatedAt: i.CreatedAt,
			AgeDays:   age,
		})
	}
	slices.SortStableFunc(out, func(a, b AgingIssue) int {
		return cmp.Compare(b.AgeDays, a.AgeDays)
	})
	return out
}

type AgingSummary struct {
	Total          int `json:"total"`
	Old            int `json:"old"`
	VeryOld        int `json:"very_old"`
	AverageAgeDays int `json:"average_age_days"`
}

func SummarizeAging(aging []AgingIssue) AgingSummary {
	s := AgingSummary{Total: len(aging)}
	ages := make([]float64, 0, len(aging))
	for _, a := range aging {
		if a.AgeDays > AgingOldDays {
			s.Old++
		}
		if a.AgeDays > AgingVeryOld {
			s.VeryOld++
		}
		ages = append(ages, float64(a.AgeDays))
	}
	if avg, ok := Mean(ages); ok {
		s.AverageAgeDays = int(math.Round(avg))
	}
	return s
}
