package stats

import (
	"cmp"
	"slices"

	"gitlab-pulse/internal/gitlab"
)

// Contributor aggregates one author's activity. Authors are identified by
// email; the name is the first one seen for that email.
type Contributor struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Commits       int    `json:"commits"`
	MergeRequests int    `json:"merge_requests"`
}

func (c Contributor) Total() int { return c.Commits + c.MergeRequests }

// RankContributors groups commits and merge requests by author email and
// orders contributors by commits plus merge requests, descending. Ties keep
// first-seen order.
func RankContributors(commits []gitlab.Commit, mrs []gitlab.MergeRequest) []Contributor {
	index := make(map[string]int)
	var out []Contributor

	entry := func(email, name string) *Contributor {
		i, ok := index[email]
		if !ok {
			i = len(out)
			index[email] = i
			out = append(out, Contributor{Email: email, Name: name})
		}
		return &out[i]
	}

	for _, c := range commits {
		entry(c.AuthorEmail, c.AuthorName).Commits++
	}
	for _, mr := range mrs {
		entry(mr.Author.Email, mr.Author.Name).MergeRequests++
	}

	slices.SortStableFunc(out, func(a, b Contributor) int {
		return cmp.Compare(b.Total(), a.Total())
	})
	return out
}
