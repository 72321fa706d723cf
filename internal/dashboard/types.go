package dashboard

import (
	"gitlab-pulse/internal/gitlab"
	"gitlab-pulse/internal/stats"
)

// Statistics is the period summary behind the key metrics and leaderboard.
type Statistics struct {
	Period          stats.Period            `json:"period"`
	ProjectsCount   int                     `json:"projects_count"`
	ActiveProjects  int                     `json:"active_projects"`
	Commits         int                     `json:"commits"`
	MergeRequests   stats.MergeRequestStats `json:"merge_requests"`
	Issues          stats.IssueStats        `json:"issues"`
	Pipelines       stats.PipelineStats     `json:"pipelines"`
	TopContributors []stats.Contributor     `json:"top_contributors"`
}

type IssueAging struct {
	Issues  []stats.AgingIssue `json:"issues"`
	Summary stats.AgingSummary `json:"summary"`
}

type PipelineMetrics struct {
	Stats              stats.PipelineStats `json:"stats"`
	AvgDurationMinutes *float64            `json:"avg_duration_minutes"`
	Sampled            int                 `json:"sampled"`
}

// Overview feeds the big metrics wall.
type Overview struct {
	Projects        int                 `json:"projects"`
	OpenMRs         int                 `json:"open_merge_requests"`
	MergedMRs       int                 `json:"merged_merge_requests"`
	AvgCycleHours   *float64            `json:"avg_cycle_hours"`
	AvgCycle        string              `json:"avg_cycle"`
	Pipelines       stats.PipelineStats `json:"pipelines"`
	FailedPipelines int                 `json:"failed_pipelines"`
	Health          stats.Health        `json:"health"`
}

type Churn struct {
	Commits   int `json:"commits"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// ProjectDetail is everything shown on a single project's page.
type ProjectDetail struct {
	Project       gitlab.Project            `json:"project"`
	Statistics    *gitlab.ProjectStatistics `json:"statistics,omitempty"`
	MergeRequests stats.MergeRequestStats   `json:"merge_requests"`
	Pipelines     stats.PipelineStats       `json:"pipelines"`
	Health        stats.Health              `json:"health"`
	Contributors  []stats.Contributor       `json:"contributors"`
	Branches      []stats.BranchCommits     `json:"branches"`
	Heatmap       stats.Heatmap             `json:"heatmap"`
	WeekChurn     Churn                     `json:"week_churn"`
	RootEntries   []gitlab.TreeNode         `json:"root_entries"`
}
