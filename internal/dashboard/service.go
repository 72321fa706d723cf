// Package dashboard composes the GitLab client, the batch orchestrator and
// the aggregation functions into the view models the server and the MCP
// tools expose.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"gitlab-pulse/internal/batch"
	"gitlab-pulse/internal/gitlab"
	"gitlab-pulse/internal/stats"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the GitLab client the dashboard reads from.
type API interface {
	Projects(ctx context.Context, opt gitlab.ListOptions) ([]gitlab.Project, error)
	Project(ctx context.Context, id int) (*gitlab.Project, error)
	MergeRequests(ctx context.Context, projectID int, opt gitlab.MergeRequestOptions) ([]gitlab.MergeRequest, error)
	Pipelines(ctx context.Context, projectID int, opt gitlab.PipelineOptions) ([]gitlab.Pipeline, error)
	Pipeline(ctx context.Context, projectID, pipelineID int) (*gitlab.PipelineDetail, error)
	Commits(ctx context.Context, projectID int, opt gitlab.CommitOptions) ([]gitlab.Commit, error)
	CommitsWithStats(ctx context.Context, projectID int, opt gitlab.CommitOptions) ([]gitlab.Commit, error)
	Issues(ctx context.Context, projectID int, opt gitlab.IssueOptions) ([]gitlab.Issue, error)
	Branches(ctx context.Context, projectID int, opt gitlab.BranchOptions) ([]gitlab.Branch, error)
	RepositoryTree(ctx context.Context, projectID int, opt gitlab.TreeOptions) ([]gitlab.TreeNode, error)
	ProjectStatistics(ctx context.Context, projectID int) (*gitlab.ProjectStatistics, error)
	CurrentUser(ctx context.Context) (*gitlab.User, error)
}

// Options tunes fan-out sizes and result limits.
type Options struct {
	SmallBatch int // heavy or multi-resource fetches
	LargeBatch int // single-resource fetches

	// MaxPipelineDetails bounds the detail calls made for duration metrics.
	MaxPipelineDetails int
	FeedLimit          int
	WallLimit          int
	AllCommitsTTL      time.Duration
}

func DefaultOptions() Options {
	return Options{
		SmallBatch:         batch.Small,
		LargeBatch:         batch.Large,
		MaxPipelineDetails: 50,
		FeedLimit:          50,
		WallLimit:          24,
		AllCommitsTTL:      5 * time.Minute,
	}
}

const allCommitsKey = "all"

type Service struct {
	api   API
	clock clockwork.Clock
	opts  Options

	// Year of commits per project, shared by every heatmap view.
	allCommits *expirable.LRU[string, map[int][]gitlab.Commit]
}

func New(api API, clock clockwork.Clock, opts Options) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultOptions()
	if opts.SmallBatch <= 0 {
		opts.SmallBatch = def.SmallBatch
	}
	if opts.LargeBatch <= 0 {
		opts.LargeBatch = def.LargeBatch
	}
	if opts.MaxPipelineDetails <= 0 {
		opts.MaxPipelineDetails = def.MaxPipelineDetails
	}
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = def.FeedLimit
	}
	if opts.WallLimit <= 0 {
		opts.WallLimit = def.WallLimit
	}
	if opts.AllCommitsTTL <= 0 {
		opts.AllCommitsTTL = def.AllCommitsTTL
	}
	return &Service{
		api:        api,
		clock:      clock,
		opts:       opts,
		allCommits: expirable.NewLRU[string, map[int][]gitlab.Commit](1, nil, opts.AllCommitsTTL),
	}
}

// Reset drops the memoised commit history.
func (s *Service) Reset() {
	s.allCommits.Purge()
}

// Projects loads every project visible to the token. A failure here blocks
// every view, so it is returned rather than downgraded.
func (s *Service) Projects(ctx context.Context) ([]gitlab.Project, error) {
	projects, err := s.api.Projects(ctx, gitlab.ListOptions{PerPage: gitlab.MaxPerPage})
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	return projects, nil
}

// scope returns all projects, or only the one with projectID when it is set.
func (s *Service) scope(ctx context.Context, projectID int) ([]gitlab.Project, error) {
	projects, err := s.Projects(ctx)
	if err != nil || projectID == 0 {
		return projects, err
	}
	for _, p := range projects {
		if p.ID == projectID {
			return []gitlab.Project{p}, nil
		}
	}
	return nil, nil
}

func names(projects []gitlab.Project) map[int]string {
	m := make(map[int]string, len(projects))
	for _, p := range projects {
		m[p.ID] = p.Name
	}
	return m
}

// MergeRequests lists one project's merge requests, or fans out over every
// project when projectID is 0.
func (s *Service) MergeRequests(ctx context.Context, projectID int) ([]gitlab.MergeRequest, error) {
	opt := gitlab.MergeRequestOptions{ListOptions: gitlab.ListOptions{PerPage: gitlab.MaxPerPage}}
	if projectID != 0 {
		return s.api.MergeRequests(ctx, projectID, opt)
	}
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	return batch.Flatten(ctx, projects, s.opts.SmallBatch, func(ctx context.Context, p gitlab.Project) ([]gitlab.MergeRequest, error) {
		return s.api.MergeRequests(ctx, p.ID, opt)
	})
}

// Pipelines mirrors MergeRequests for pipelines.
func (s *Service) Pipelines(ctx context.Context, projectID int) ([]gitlab.Pipeline, error) {
	opt := gitlab.PipelineOptions{ListOptions: gitlab.ListOptions{PerPage: gitlab.MaxPerPage}}
	if projectID != 0 {
		return s.api.Pipelines(ctx, projectID, opt)
	}
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	return batch.Flatten(ctx, projects, s.opts.SmallBatch, func(ctx context.Context, p gitlab.Project) ([]gitlab.Pipeline, error) {
		return s.api.Pipelines(ctx, p.ID, opt)
	})
}

func (s *Service) CurrentUser(ctx context.Context) (*gitlab.User, error) {
	return s.api.CurrentUser(ctx)
}

// Statistics summarises a period across all projects.
func (s *Service) Statistics(ctx context.Context, period stats.Period) (*Statistics, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	since, until := stats.DateRange(period, now)

	var (
		mrs       []gitlab.MergeRequest
		pipelines []gitlab.Pipeline
		commits   []gitlab.Commit
		issues    []gitlab.Issue
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mrs, err = s.MergeRequests(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		pipelines, err = s.Pipelines(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		opt := gitlab.CommitOptions{Since: since, Until: until, ListOptions: gitlab.ListOptions{PerPage: gitlab.MaxPerPage}}
		commits, err = batch.Flatten(gctx, projects, s.opts.SmallBatch, func(ctx context.Context, p gitlab.Project) ([]gitlab.Commit, error) {
			return s.api.Commits(ctx, p.ID, opt)
		})
		return err
	})
	g.Go(func() (err error) {
		opt := gitlab.IssueOptions{ListOptions: gitlab.ListOptions{PerPage: gitlab.MaxPerPage}}
		issues, err = batch.Flatten(gctx, projects, s.opts.SmallBatch, func(ctx context.Context, p gitlab.Project) ([]gitlab.Issue, error) {
			return s.api.Issues(ctx, p.ID, opt)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Statistics{
		Period:          period,
		ProjectsCount:   len(projects),
		ActiveProjects:  stats.ActiveProjects(projects, period, now),
		Commits:         len(commits),
		MergeRequests:   stats.SummarizeMergeRequests(mrs),
		Issues:          stats.SummarizeIssues(issues),
		Pipelines:       stats.SummarizePipelines(pipelines),
		TopContributors: stats.RankContributors(commits, mrs),
	}, nil
}

// Leaderboard returns the top contributors of a period.
func (s *Service) Leaderboard(ctx context.Context, period stats.Period, limit int) ([]stats.Contributor, error) {
	st, err := s.Statistics(ctx, period)
	if err != nil {
		return nil, err
	}
	top := st.TopContributors
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// AllCommits loads a year of commits for every project, keyed by project ID.
// Projects without commits are left out. The result is memoised for a few
// minutes on top of the per-request cache.
func (s *Service) AllCommits(ctx context.Context) (map[int][]gitlab.Commit, error) {
	if m, ok := s.allCommits.Get(allCommitsKey); ok {
		return m, nil
	}
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}

	opt := gitlab.CommitOptions{
		Since:       s.clock.Now().AddDate(0, 0, -7*stats.HeatmapWeeks),
		ListOptions: gitlab.ListOptions{PerPage: gitlab.MaxPerPage},
	}
	m, err := batch.Collect(ctx, projects, s.opts.LargeBatch,
		func(p gitlab.Project) int { return p.ID },
		func(ctx context.Context, p gitlab.Project) ([]gitlab.Commit, error) {
			return s.api.Commits(ctx, p.ID, opt)
		})
	if err != nil {
		return nil, err
	}
	s.allCommits.Add(allCommitsKey, m)
	log.Debug().Int("projects", len(m)).Msg("Loaded commit history")
	return m, nil
}

func flatten(m map[int][]gitlab.Commit, projectID int) []gitlab.Commit {
	if projectID != 0 {
		return m[projectID]
	}
	var out []gitlab.Commit
	for _, cs := range m {
		out = append(out, cs...)
	}
	return out
}

// Heatmap is the 52-week commit heatmap for all projects or one project.
func (s *Service) Heatmap(ctx context.Context, projectID int) (stats.Heatmap, error) {
	m, err := s.AllCommits(ctx)
	if err != nil {
		return stats.Heatmap{}, err
	}
	return stats.YearHeatmap(flatten(m, projectID), s.clock.Now()), nil
}

// WeekHeatmap is the Monday to Sunday view of the current week.
func (s *Service) WeekHeatmap(ctx context.Context) (stats.Heatmap, error) {
	m, err := s.AllCommits(ctx)
	if err != nil {
		return stats.Heatmap{}, err
	}
	return stats.WeekHeatmap(flatten(m, 0), s.clock.Now()), nil
}

func (s *Service) Health(ctx context.Context) (stats.Health, error) {
	mrs, pipelines, err := s.mergeRequestsAndPipelines(ctx)
	if err != nil {
		return stats.Health{}, err
	}
	return stats.HealthScore(stats.NewHealthInput(mrs, pipelines, s.clock.Now())), nil
}

func (s *Service) mergeRequestsAndPipelines(ctx context.Context) ([]gitlab.MergeRequest, []gitlab.Pipeline, error) {
	var (
		mrs       []gitlab.MergeRequest
		pipelines []gitlab.Pipeline
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mrs, err = s.MergeRequests(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		pipelines, err = s.Pipelines(gctx, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return mrs, pipelines, nil
}

// both runs two fetches for the same project concurrently. A failing fetch
// is logged and leaves its result empty.
func both[A, B any](ctx context.Context, projectID int, fa func(context.Context) (A, error), fb func(context.Context) (B, error)) (A, B) {
	var (
		a A
		b B
		g errgroup.Group
	)
	g.Go(func() error {
		v, err := fa(ctx)
		if err != nil {
			log.Warn().Err(err).Int("project", projectID).Msg("Fetch failed, using empty result")
			return nil
		}
		a = v
		return nil
	})
	g.Go(func() error {
		v, err := fb(ctx)
		if err != nil {
			log.Warn().Err(err).Int("project", projectID).Msg("Fetch failed, using empty result")
			return nil
		}
		b = v
		return nil
	})
	_ = g.Wait()
	return a, b
}

// EnergyMap scores every project on its last week of commits, its merge
// requests and its open issues.
func (s *Service) EnergyMap(ctx context.Context, sortBy string) ([]stats.ProjectEnergy, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	since := s.clock.Now().AddDate(0, 0, -7)

	energies, err := batch.Map(ctx, projects, s.opts.SmallBatch, func(ctx context.Context, p gitlab.Project) (stats.ProjectEnergy, error) {
		commits, mrs := both(ctx, p.ID,
			func(ctx context.Context) ([]gitlab.Commit, error) {
				return s.api.Commits(ctx, p.ID, gitlab.CommitOptions{Since: since, ListOptions: gitlab.ListOptions{PerPage: 100}})
			},
			func(ctx context.Context) ([]gitlab.MergeRequest, error) {
				return s.api.MergeRequests(ctx, p.ID, gitlab.MergeRequestOptions{ListOptions: gitlab.ListOptions{PerPage: 100}})
			})
		return stats.NewProjectEnergy(p.ID, p.Name, p.WebURL, len(commits), len(mrs), p.OpenIssuesCount), nil
	})
	if err != nil {
		return nil, err
	}
	return stats.RankEnergy(energies, sortBy), nil
}

// DeveloperActivity ranks contributors on the last week of commits and on
// recent merge requests, for all projects or one.
func (s *Service) DeveloperActivity(ctx context.Context, projectID int) ([]stats.Contributor, error) {
	projects, err := s.scope(ctx, projectID)
	if err != nil {
		return nil, err
	}
	since := s.clock.Now().AddDate(0, 0, -7)

	type activity struct {
		commits []gitlab.Commit
		mrs     []gitlab.MergeRequest
	}
	results, err := batch.Map(ctx, projects, s.opts.SmallBatch, func(ctx context.Context, p gitlab.Project) (activity, error) {
		commits, mrs := both(ctx, p.ID,
			func(ctx context.Context) ([]gitlab.Commit, error) {
				return s.api.Commits(ctx, p.ID, gitlab.CommitOptions{Since: since, ListOptions: gitlab.ListOptions{PerPage: 200}})
			},
			func(ctx context.Context) ([]gitlab.MergeRequest, error) {
				return s.api.MergeRequests(ctx, p.ID, gitlab.MergeRequestOptions{ListOptions: gitlab.ListOptions{PerPage: 200}})
			})
		return activity{commits: commits, mrs: mrs}, nil
	})
	if err != nil {
		return nil, err
	}

	var (
		commits []gitlab.Commit
		mrs     []gitlab.MergeRequest
	)
	for _, r := range results {
		commits = append(commits, r.commits...)
		mrs = append(mrs, r.mrs...)
	}
	return stats.RankContributors(commits, mrs), nil
}

// BranchActivity totals recent commits per branch. Commits are attributed to
// each project's default branch; see stats.AttributedBranch.
func (s *Service) BranchActivity(ctx context.Context, projectID int) ([]stats.BranchCommits, error) {
	projects, err := s.scope(ctx, projectID)
	if err != nil {
		return nil, err
	}

	type attribution struct {
		branch  string
		commits int
	}
	results, err := batch.Map(ctx, projects, s.opts.LargeBatch, func(ctx context.Context, p gitlab.Project) (attribution, error) {
		branches, commits := both(ctx, p.ID,
			func(ctx context.Context) ([]gitlab.Branch, error) {
				return s.api.Branches(ctx, p.ID, gitlab.BranchOptions{ListOptions: gitlab.ListOptions{PerPage: 200}})
			},
			func(ctx context.Context) ([]gitlab.Commit, error) {
				return s.api.Commits(ctx, p.ID, gitlab.CommitOptions{ListOptions: gitlab.ListOptions{PerPage: 200}})
			})
		return attribution{branch: stats.AttributedBranch(p, branches), commits: len(commits)}, nil
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	for _, r := range results {
		if r.commits > 0 {
			totals[r.branch] += r.commits
		}
	}
	return stats.RankBranches(totals), nil
}

func (s *Service) Velocity(ctx context.Context) ([]stats.VelocityWeek, error) {
	mrs, err := s.MergeRequests(ctx, 0)
	if err != nil {
		return nil, err
	}
	return stats.Velocity(mrs, s.clock.Now(), stats.VelocityWeeks), nil
}

func (s *Service) ReviewStats(ctx context.Context) (stats.ReviewStats, error) {
	mrs, err := s.MergeRequests(ctx, 0)
	if err != nil {
		return stats.ReviewStats{}, err
	}
	return stats.SummarizeReviews(mrs), nil
}

// IssueAging lists open issues older than a week across all projects.
func (s *Service) IssueAging(ctx context.Context) (*IssueAging, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	opt := gitlab.IssueOptions{State: gitlab.StateOpened, ListOptions: gitlab.ListOptions{PerPage: 200}}
	issues, err := batch.Flatten(ctx, projects, s.opts.LargeBatch, func(ctx context.Context, p gitlab.Project) ([]gitlab.Issue, error) {
		return s.api.Issues(ctx, p.ID, opt)
	})
	if err != nil {
		return nil, err
	}
	aging := stats.AgingIssues(issues, names(projects), s.clock.Now())
	return &IssueAging{Issues: aging, Summary: stats.SummarizeAging(aging)}, nil
}

// ActiveRepos ranks projects by commits in the last week.
func (s *Service) ActiveRepos(ctx context.Context) ([]stats.RepoActivity, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	opt := gitlab.CommitOptions{Since: s.clock.Now().AddDate(0, 0, -7), ListOptions: gitlab.ListOptions{PerPage: 100}}
	repos, err := batch.Map(ctx, projects, s.opts.LargeBatch, func(ctx context.Context, p gitlab.Project) (stats.RepoActivity, error) {
		commits, err := s.api.Commits(ctx, p.ID, opt)
		if err != nil {
			return stats.RepoActivity{}, err
		}
		return stats.RepoActivity{ProjectID: p.ID, Name: p.Name, WebURL: p.WebURL, Commits: len(commits)}, nil
	})
	if err != nil {
		return nil, err
	}
	return stats.RankActiveRepos(repos), nil
}

// PipelineMetrics adds average duration to the pipeline counts. Durations
// come from detail calls for the newest pipelines of the last week, capped at
// MaxPipelineDetails and issued in batches.
func (s *Service) PipelineMetrics(ctx context.Context) (*PipelineMetrics, error) {
	pipelines, err := s.Pipelines(ctx, 0)
	if err != nil {
		return nil, err
	}
	recent := stats.NewestFirst(stats.CreatedSince(pipelines, s.clock.Now().AddDate(0, 0, -7)), s.opts.MaxPipelineDetails)

	details, err := batch.Map(ctx, recent, s.opts.SmallBatch, func(ctx context.Context, p gitlab.Pipeline) (gitlab.PipelineDetail, error) {
		d, err := s.api.Pipeline(ctx, p.ProjectID, p.ID)
		if err != nil {
			return gitlab.PipelineDetail{}, err
		}
		return *d, nil
	})
	if err != nil {
		return nil, err
	}

	avg, ok := stats.AverageDurationMinutes(details)
	m := &PipelineMetrics{Stats: stats.SummarizePipelines(pipelines)}
	for _, d := range details {
		if d.Duration != nil {
			m.Sampled++
		}
	}
	if ok {
		m.AvgDurationMinutes = &avg
	}
	return m, nil
}

func (s *Service) FailedPipelines(ctx context.Context) ([]stats.ProjectFailures, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	pipelines, err := s.Pipelines(ctx, 0)
	if err != nil {
		return nil, err
	}
	return stats.FailedByProject(pipelines, names(projects)), nil
}

// PipelineWall returns the newest pipelines across all projects.
func (s *Service) PipelineWall(ctx context.Context) ([]gitlab.Pipeline, error) {
	pipelines, err := s.Pipelines(ctx, 0)
	if err != nil {
		return nil, err
	}
	return stats.NewestFirst(pipelines, s.opts.WallLimit), nil
}

func (s *Service) ActivityFeed(ctx context.Context) ([]stats.Event, error) {
	return s.feed(ctx, stats.ActivityFeed)
}

func (s *Service) CodePulse(ctx context.Context) ([]stats.Event, error) {
	return s.feed(ctx, stats.CodePulse)
}

func (s *Service) feed(ctx context.Context, build func([]gitlab.MergeRequest, []gitlab.Pipeline, map[int]string, int) []stats.Event) ([]stats.Event, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	mrs, pipelines, err := s.mergeRequestsAndPipelines(ctx)
	if err != nil {
		return nil, err
	}
	return build(mrs, pipelines, names(projects), s.opts.FeedLimit), nil
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	mrs, pipelines, err := s.mergeRequestsAndPipelines(ctx)
	if err != nil {
		return nil, err
	}

	mrStats := stats.SummarizeMergeRequests(mrs)
	ps := stats.SummarizePipelines(pipelines)
	o := &Overview{
		Projects:        len(projects),
		OpenMRs:         mrStats.Opened,
		MergedMRs:       mrStats.Merged,
		AvgCycleHours:   mrStats.AvgCycleHours,
		Pipelines:       ps,
		FailedPipelines: ps.Failed,
		Health:          stats.HealthScore(stats.NewHealthInput(mrs, pipelines, s.clock.Now())),
	}
	if o.AvgCycleHours != nil {
		o.AvgCycle = stats.FormatDuration(*o.AvgCycleHours)
	}
	return o, nil
}

// ProjectDetail loads one project's page. The project itself is required;
// every other section degrades to empty on failure.
func (s *Service) ProjectDetail(ctx context.Context, id int) (*ProjectDetail, error) {
	project, err := s.api.Project(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %d: %w", id, err)
	}
	now := s.clock.Now()
	d := &ProjectDetail{Project: *project}

	var (
		mrs       []gitlab.MergeRequest
		pipelines []gitlab.Pipeline
		churn     []gitlab.Commit
	)
	soft := func(what string, err error) error {
		if err != nil {
			log.Warn().Err(err).Int("project", id).Str("section", what).Msg("Project section unavailable")
		}
		return nil
	}

	var g errgroup.Group
	g.Go(func() (err error) {
		mrs, err = s.MergeRequests(ctx, id)
		return soft("merge_requests", err)
	})
	g.Go(func() (err error) {
		pipelines, err = s.Pipelines(ctx, id)
		return soft("pipelines", err)
	})
	g.Go(func() (err error) {
		d.Statistics, err = s.api.ProjectStatistics(ctx, id)
		return soft("statistics", err)
	})
	g.Go(func() (err error) {
		churn, err = s.api.CommitsWithStats(ctx, id, gitlab.CommitOptions{Since: now.AddDate(0, 0, -7), ListOptions: gitlab.ListOptions{PerPage: 100}})
		return soft("churn", err)
	})
	g.Go(func() (err error) {
		d.RootEntries, err = s.api.RepositoryTree(ctx, id, gitlab.TreeOptions{Ref: project.DefaultBranch})
		return soft("tree", err)
	})
	g.Go(func() (err error) {
		d.Contributors, err = s.DeveloperActivity(ctx, id)
		return soft("contributors", err)
	})
	g.Go(func() (err error) {
		d.Branches, err = s.BranchActivity(ctx, id)
		return soft("branches", err)
	})
	g.Go(func() (err error) {
		d.Heatmap, err = s.Heatmap(ctx, id)
		return soft("heatmap", err)
	})
	_ = g.Wait()

	d.MergeRequests = stats.SummarizeMergeRequests(mrs)
	d.Pipelines = stats.SummarizePipelines(pipelines)
	d.Health = stats.HealthScore(stats.NewHealthInput(mrs, pipelines, now))
	for _, c := range churn {
		d.WeekChurn.Commits++
		if c.Stats != nil {
			d.WeekChurn.Additions += c.Stats.Additions
			d.WeekChurn.Deletions += c.Stats.Deletions
		}
	}
	return d, nil
}

// Warm refreshes the shared listings every interval so that views stay
// within their cache TTLs. It returns when ctx is done.
func (s *Service) Warm(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			start := s.clock.Now()
			if _, _, err := s.mergeRequestsAndPipelines(ctx); err != nil {
				log.Warn().Err(err).Msg("Background refresh failed")
				continue
			}
			log.Debug().Dur("took", s.clock.Since(start)).Msg("Background refresh done")
		}
	}
}
