package gitlab

import "time"

// Project is the fan-out unit for every per-project query.
type Project struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	NameWithNamespace string    `json:"name_with_namespace"`
	Path              string    `json:"path"`
	PathWithNamespace string    `json:"path_with_namespace"`
	Description       *string   `json:"description"`
	DefaultBranch     string    `json:"default_branch"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	WebURL            string    `json:"web_url"`
	AvatarURL         *string   `json:"avatar_url"`
	StarCount         int       `json:"star_count"`
	ForksCount        int       `json:"forks_count"`
	OpenIssuesCount   int       `json:"open_issues_count"`
	Visibility        string    `json:"visibility"`
}

// Activity returns the most recent of UpdatedAt and LastActivityAt. Some
// GitLab versions omit updated_at on list endpoints.
func (p Project) Activity() time.Time {
	if p.LastActivityAt.After(p.UpdatedAt) {
		return p.LastActivityAt
	}
	return p.UpdatedAt
}

type User struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	AvatarURL *string    `json:"avatar_url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

type Commit struct {
	ID            string       `json:"id"`
	ShortID       string       `json:"short_id"`
	Title         string       `json:"title"`
	Message       string       `json:"message"`
	AuthorName    string       `json:"author_name"`
	AuthorEmail   string       `json:"author_email"`
	AuthoredDate  time.Time    `json:"authored_date"`
	CommittedDate time.Time    `json:"committed_date"`
	CreatedAt     time.Time    `json:"created_at"`
	Stats         *CommitStats `json:"stats,omitempty"`
}

// Merge request states.
const (
	StateOpened = "opened"
	StateMerged = "merged"
	StateClosed = "closed"
)

type MergeRequest struct {
	ID          int        `json:"id"`
	IID         int        `json:"iid"`
	ProjectID   int        `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	State       string     `json:"state"`
	MergedAt    *time.Time `json:"merged_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Author      User       `json:"author"`
	WebURL      string     `json:"web_url"`
}

// Pipeline statuses the aggregations care about.
const (
	PipelineSuccess  = "success"
	PipelineFailed   = "failed"
	PipelineRunning  = "running"
	PipelinePending  = "pending"
	PipelineCanceled = "canceled"
)

type Pipeline struct {
	ID        int       `json:"id"`
	ProjectID int       `json:"project_id"`
	Ref       string    `json:"ref"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	WebURL    string    `json:"web_url"`
}

// PipelineDetail is only returned by the single-pipeline endpoint.
type PipelineDetail struct {
	Pipeline
	Duration       *float64 `json:"duration"`
	QueuedDuration *float64 `json:"queued_duration"`
	Coverage       *string  `json:"coverage"`
}

type Issue struct {
	ID          int        `json:"id"`
	IID         int        `json:"iid"`
	ProjectID   int        `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	Author      User       `json:"author"`
	WebURL      string     `json:"web_url"`
	Labels      []string   `json:"labels"`
}

type BranchCommit struct {
	ID        string    `json:"id"`
	ShortID   string    `json:"short_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	ParentIDs []string  `json:"parent_ids"`
}

type Branch struct {
	Name               string        `json:"name"`
	Merged             bool          `json:"merged"`
	Protected          bool          `json:"protected"`
	DevelopersCanPush  bool          `json:"developers_can_push"`
	DevelopersCanMerge bool          `json:"developers_can_merge"`
	Default            bool          `json:"default"`
	CanPush            bool          `json:"can_push"`
	Commit             *BranchCommit `json:"commit,omitempty"`
}

// TreeNode is one entry of a repository tree listing.
type TreeNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "tree" or "blob"
	Path string `json:"path"`
	Mode string `json:"mode"`
}

type ProjectStatistics struct {
	CommitCount      int   `json:"commit_count"`
	StorageSize      int64 `json:"storage_size"`
	RepositorySize   int64 `json:"repository_size"`
	WikiSize         int64 `json:"wiki_size"`
	LFSObjectsSize   int64 `json:"lfs_objects_size"`
	JobArtifactsSize int64 `json:"job_artifacts_size"`
	PackagesSize     int64 `json:"packages_size"`
	SnippetsSize     int64 `json:"snippets_size"`
}
