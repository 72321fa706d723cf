package stats

import (
	"cmp"
	"slices"
	"strings"
)

// ProjectEnergy is a project's weighted activity index. The number is only
// meaningful relative to other projects.
type ProjectEnergy struct {
	ProjectID     int    `json:"project_id"`
	Name          string `json:"name"`
	WebURL        string `json:"web_url"`
	Commits       int    `json:"commits"`
	MergeRequests int    `json:"merge_requests"`
	OpenIssues    int    `json:"open_issues"`
	Energy        int    `json:"energy"`
	Level         string `json:"level"`
}

// EnergyScore weighs commits by 2, merge requests by 5 and open issues by 1.
func EnergyScore(commits, mergeRequests, openIssues int) int {
	return commits*2 + mergeRequests*5 + openIssues
}

func EnergyLevel(energy int) string {
	switch {
	case energy > 100:
		return "very high"
	case energy > 50:
		return "high"
	case energy > 20:
		return "medium"
	case energy > 0:
		return "low"
	default:
		return "inactive"
	}
}

// NewProjectEnergy fills in the score and level.
func NewProjectEnergy(id int, name, webURL string, commits, mergeRequests, openIssues int) ProjectEnergy {
	e := EnergyScore(commits, mergeRequests, openIssues)
	return ProjectEnergy{
		ProjectID:     id,
		Name:          name,
		WebURL:        webURL,
		Commits:       commits,
		MergeRequests: mergeRequests,
		OpenIssues:    openIssues,
		Energy:        e,
		Level:         EnergyLevel(e),
	}
}

// Energy sort orders.
const (
	SortByEnergy = "energy"
	SortByName   = "name"
)

// RankEnergy returns a sorted copy: by energy descending, or by name.
func RankEnergy(in []ProjectEnergy, by string) []ProjectEnergy {
	out := slices.Clone(in)
	if by == SortByName {
		slices.SortStableFunc(out, func(a, b ProjectEnergy) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
		return out
	}
	slices.SortStableFunc(out, func(a, b ProjectEnergy) int {
		return cmp.Compare(b.Energy, a.Energy)
	})
	return out
}
