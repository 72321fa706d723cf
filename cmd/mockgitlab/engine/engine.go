package engine

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gitlab-pulse/internal/gitlab"

	"github.com/goccy/go-json"
)

type GeneratorConfig struct {
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Projects     int
	Seed         int64
	Now          time.Time
}

// Dataset is a synthetic GitLab instance, keyed by project ID.
type Dataset struct {
	Projects      []gitlab.Project                `json:"projects"`
	Commits       map[int][]gitlab.Commit         `json:"commits"`
	MergeRequests map[int][]gitlab.MergeRequest   `json:"merge_requests"`
	Pipelines     map[int][]gitlab.Pipeline       `json:"pipelines"`
	Details       map[int]gitlab.PipelineDetail   `json:"pipeline_details"`
	Issues        map[int][]gitlab.Issue          `json:"issues"`
	Branches      map[int][]gitlab.Branch         `json:"branches"`
	Statistics    map[int]gitlab.ProjectStatistics `json:"statistics"`
	User          gitlab.User                     `json:"user"`
}

var developers = []gitlab.User{
	{ID: 1, Name: "Ada Lovelace", Username: "ada", Email: "ada@example.com"},
	{ID: 2, Name: "Grace Hopper", Username: "grace", Email: "grace@example.com"},
	{ID: 3, Name: "Ken Thompson", Username: "ken", Email: "ken@example.com"},
	{ID: 4, Name: "Barbara Liskov", Username: "barbara", Email: "barbara@example.com"},
	{ID: 5, Name: "Rob Pike", Username: "rob", Email: "rob@example.com"},
	{ID: 6, Name: "Frances Allen", Username: "frances", Email: "frances@example.com"},
}

const (
	historyDays   = 365
	mrsPerProject = 40
	pipelineDays  = 30
	issuesPerProj = 20
)

type generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
	ds  *Dataset

	nextMR, nextPipeline, nextIssue int
}

func Generate(cfg GeneratorConfig) *Dataset {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Projects <= 0 {
		cfg.Projects = 12
	}
	g := &generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		ds: &Dataset{
			Commits:       make(map[int][]gitlab.Commit),
			MergeRequests: make(map[int][]gitlab.MergeRequest),
			Pipelines:     make(map[int][]gitlab.Pipeline),
			Details:       make(map[int]gitlab.PipelineDetail),
			Issues:        make(map[int][]gitlab.Issue),
			Branches:      make(map[int][]gitlab.Branch),
			Statistics:    make(map[int]gitlab.ProjectStatistics),
			User:          developers[0],
		},
		nextMR:       1000,
		nextPipeline: 5000,
		nextIssue:    9000,
	}

	for i := 1; i <= cfg.Projects; i++ {
		g.project(i)
	}
	return g.ds
}

func (g *generator) project(id int) {
	now := g.cfg.Now
	p := gitlab.Project{
		ID:                id,
		Name:              fmt.Sprintf("service-%02d", id),
		Path:              fmt.Sprintf("service-%02d", id),
		NameWithNamespace: fmt.Sprintf("Pulse / service-%02d", id),
		PathWithNamespace: fmt.Sprintf("pulse/service-%02d", id),
		DefaultBranch:     "main",
		CreatedAt:         now.AddDate(-2, 0, -id),
		WebURL:            fmt.Sprintf("https://gitlab.example.com/pulse/service-%02d", id),
		Visibility:        "internal",
	}
	if id%3 == 0 {
		p.DefaultBranch = "develop"
	}

	commits := g.commits(p)
	mrs := g.mergeRequests(p)
	g.pipelines(p)
	issues := g.issues(p)

	for _, is := range issues {
		if is.State == gitlab.StateOpened {
			p.OpenIssuesCount++
		}
	}
	p.UpdatedAt = now.Add(-time.Duration(g.rng.Intn(72)) * time.Hour)
	if len(commits) > 0 {
		p.LastActivityAt = commits[0].CommittedDate
	}

	g.ds.Projects = append(g.ds.Projects, p)
	g.ds.Commits[id] = commits
	g.ds.MergeRequests[id] = mrs
	g.ds.Issues[id] = issues
	g.ds.Branches[id] = g.branches(p)
	g.ds.Statistics[id] = gitlab.ProjectStatistics{
		CommitCount:    len(commits),
		RepositorySize: int64(len(commits)) * 48 << 10,
		StorageSize:    int64(len(commits)) * 64 << 10,
	}
}

// dailyRate is the mean number of commits on a day ageDays in the past.
func (g *generator) dailyRate(ageDays int, weekday time.Weekday) float64 {
	rate := 1.6
	if weekday == time.Saturday || weekday == time.Sunday {
		rate = 0.2
	}
	switch g.cfg.Scenario {
	case "chaos":
		if g.rng.Float64() < 0.1 {
			rate *= 6 // release crunch
		}
	case "drift":
		// Activity fades towards the present.
		rate *= 0.2 + 1.6*float64(ageDays)/historyDays
	}
	return rate
}

func (g *generator) commits(p gitlab.Project) []gitlab.Commit {
	var out []gitlab.Commit
	day := startOfDay(g.cfg.Now)
	for age := 0; age < historyDays; age++ {
		d := day.AddDate(0, 0, -age)
		n := g.poisson(g.dailyRate(age, d.Weekday()))
		for range n {
			ts := d.Add(time.Duration(8*60+g.rng.Intn(10*60)) * time.Minute)
			if ts.After(g.cfg.Now) {
				ts = g.cfg.Now.Add(-time.Duration(g.rng.Intn(60)+1) * time.Minute)
			}
			dev := developers[g.rng.Intn(len(developers))]
			sha := fmt.Sprintf("%016x%016x%08x", g.rng.Uint64(), g.rng.Uint64(), g.rng.Uint32())
			add, del := g.rng.Intn(200), g.rng.Intn(80)
			out = append(out, gitlab.Commit{
				ID:            sha,
				ShortID:       sha[:8],
				Title:         fmt.Sprintf("Update %s", p.Name),
				Message:       fmt.Sprintf("Update %s\n", p.Name),
				AuthorName:    dev.Name,
				AuthorEmail:   dev.Email,
				AuthoredDate:  ts,
				CommittedDate: ts,
				CreatedAt:     ts,
				Stats:         &gitlab.CommitStats{Additions: add, Deletions: del, Total: add + del},
			})
		}
	}
	slices.SortFunc(out, func(a, b gitlab.Commit) int { return b.CommittedDate.Compare(a.CommittedDate) })
	return out
}

// cycleDays samples how long a merge request stays open.
func (g *generator) cycleDays(i int) float64 {
	k, lambda := 2.5, 2.0
	switch g.cfg.Scenario {
	case "chaos":
		k, lambda = 0.8, 4.0
	case "drift":
		ratio := float64(i) / mrsPerProject
		k = 2.5 - 1.7*ratio
		lambda = 2.0 + 4.0*ratio
	}
	if g.cfg.Distribution == "weibull" {
		return weibullSample(g.rng, k, lambda)
	}
	return 0.5 + g.rng.Float64()*lambda*1.5
}

func (g *generator) mergeRequests(p gitlab.Project) []gitlab.MergeRequest {
	now := g.cfg.Now
	out := make([]gitlab.MergeRequest, 0, mrsPerProject)
	for i := range mrsPerProject {
		// Oldest first so that drift grows towards the present.
		created := now.Add(-time.Duration(float64(mrsPerProject-i)*3*24+g.rng.Float64()*48) * time.Hour)
		cycle := time.Duration(g.cycleDays(i) * 24 * float64(time.Hour))
		g.nextMR++
		mr := gitlab.MergeRequest{
			ID:        g.nextMR,
			IID:       i + 1,
			ProjectID: p.ID,
			Title:     fmt.Sprintf("Feature %d for %s", i+1, p.Name),
			State:     gitlab.StateOpened,
			CreatedAt: created,
			UpdatedAt: created,
			Author:    developers[g.rng.Intn(len(developers))],
			WebURL:    fmt.Sprintf("%s/-/merge_requests/%d", p.WebURL, i+1),
		}
		if end := created.Add(cycle); end.Before(now) {
			mr.UpdatedAt = end
			if g.rng.Float64() < 0.9 {
				mr.State = gitlab.StateMerged
				mr.MergedAt = &end
			} else {
				mr.State = gitlab.StateClosed
			}
		}
		out = append(out, mr)
	}
	slices.SortFunc(out, func(a, b gitlab.MergeRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (g *generator) successRate(ageDays float64) float64 {
	switch g.cfg.Scenario {
	case "chaos":
		return 0.6
	case "drift":
		return 0.6 + 0.35*ageDays/pipelineDays
	default:
		return 0.92
	}
}

func (g *generator) pipelines(p gitlab.Project) {
	now := g.cfg.Now
	var out []gitlab.Pipeline
	for age := float64(pipelineDays); age > 0; age -= 0.5 + g.rng.Float64() {
		created := now.Add(-time.Duration(age * 24 * float64(time.Hour)))
		g.nextPipeline++
		status := gitlab.PipelineFailed
		if g.rng.Float64() < g.successRate(age) {
			status = gitlab.PipelineSuccess
		}
		if age < 0.05 {
			status = gitlab.PipelineRunning
		}
		duration := 300 + g.rng.Float64()*1200
		pl := gitlab.Pipeline{
			ID:        g.nextPipeline,
			ProjectID: p.ID,
			Ref:       p.DefaultBranch,
			Status:    status,
			Source:    "push",
			CreatedAt: created,
			UpdatedAt: created.Add(time.Duration(duration) * time.Second),
			WebURL:    fmt.Sprintf("%s/-/pipelines/%d", p.WebURL, g.nextPipeline),
		}
		out = append(out, pl)
		d := gitlab.PipelineDetail{Pipeline: pl}
		if status != gitlab.PipelineRunning {
			d.Duration = &duration
		}
		g.ds.Details[pl.ID] = d
	}
	slices.SortFunc(out, func(a, b gitlab.Pipeline) int { return b.CreatedAt.Compare(a.CreatedAt) })
	g.ds.Pipelines[p.ID] = out
}

func (g *generator) issues(p gitlab.Project) []gitlab.Issue {
	now := g.cfg.Now
	out := make([]gitlab.Issue, 0, issuesPerProj)
	for i := range issuesPerProj {
		created := now.Add(-time.Duration(g.rng.Intn(200*24)) * time.Hour)
		g.nextIssue++
		is := gitlab.Issue{
			ID:        g.nextIssue,
			IID:       i + 1,
			ProjectID: p.ID,
			Title:     fmt.Sprintf("Issue %d in %s", i+1, p.Name),
			State:     gitlab.StateOpened,
			CreatedAt: created,
			UpdatedAt: created,
			Author:    developers[g.rng.Intn(len(developers))],
			WebURL:    fmt.Sprintf("%s/-/issues/%d", p.WebURL, i+1),
			Labels:    []string{},
		}
		if g.rng.Float64() < 0.6 {
			closed := created.Add(time.Duration(g.rng.Intn(int(now.Sub(created).Hours())+1)) * time.Hour)
			is.State = gitlab.StateClosed
			is.ClosedAt = &closed
			is.UpdatedAt = closed
		}
		out = append(out, is)
	}
	slices.SortFunc(out, func(a, b gitlab.Issue) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (g *generator) branches(p gitlab.Project) []gitlab.Branch {
	out := []gitlab.Branch{{Name: p.DefaultBranch, Default: true, Protected: true}}
	for i := range 2 + g.rng.Intn(3) {
		out = append(out, gitlab.Branch{Name: fmt.Sprintf("feature/%s-%d", p.Name, i+1)})
	}
	return out
}

// poisson samples with Knuth's method; rates here are small.
func (g *generator) poisson(lambda float64) int {
	l := math.Exp(-lambda)
	k, prob := 0, 1.0
	for {
		prob *= g.rng.Float64()
		if prob <= l {
			return k
		}
		k++
	}
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Save writes the dataset as a single JSON document.
func Save(outDir string, name string, ds *Dataset) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(outDir, name+".json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}
