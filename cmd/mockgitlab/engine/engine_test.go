package engine

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitlab-pulse/internal/gitlab"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func generate(scenario, distribution string) *Dataset {
	return Generate(GeneratorConfig{
		Scenario:     scenario,
		Distribution: distribution,
		Projects:     3,
		Seed:         42,
		Now:          testNow,
	})
}

func TestGenerate_Deterministic(t *testing.T) {
	a := generate("mild", "weibull")
	b := generate("mild", "weibull")

	if len(a.Projects) != 3 {
		t.Fatalf("len(Projects) = %d, want 3", len(a.Projects))
	}
	for _, p := range a.Projects {
		if len(a.Commits[p.ID]) != len(b.Commits[p.ID]) {
			t.Errorf("project %d: commits %d vs %d, want same seed to match", p.ID, len(a.Commits[p.ID]), len(b.Commits[p.ID]))
		}
		if len(a.Commits[p.ID]) > 0 && a.Commits[p.ID][0].ID != b.Commits[p.ID][0].ID {
			t.Errorf("project %d: newest commit differs between runs", p.ID)
		}
	}
}

func TestGenerate_Invariants(t *testing.T) {
	for _, scenario := range []string{"mild", "chaos", "drift"} {
		t.Run(scenario, func(t *testing.T) {
			ds := generate(scenario, "weibull")
			for _, p := range ds.Projects {
				commits := ds.Commits[p.ID]
				if len(commits) == 0 {
					t.Fatalf("project %d has no commits", p.ID)
				}
				for i, c := range commits {
					if c.CommittedDate.After(testNow) {
						t.Errorf("commit %s is in the future", c.ShortID)
					}
					if i > 0 && c.CommittedDate.After(commits[i-1].CommittedDate) {
						t.Errorf("commits not newest first at %d", i)
					}
				}
				for _, mr := range ds.MergeRequests[p.ID] {
					if mr.State == gitlab.StateMerged && (mr.MergedAt == nil || mr.MergedAt.Before(mr.CreatedAt)) {
						t.Errorf("merged MR %d has invalid merged_at", mr.IID)
					}
				}
				for _, pl := range ds.Pipelines[p.ID] {
					if d, ok := ds.Details[pl.ID]; !ok || d.ProjectID != p.ID {
						t.Errorf("pipeline %d has no detail", pl.ID)
					}
				}
				if ds.Branches[p.ID][0].Name != p.DefaultBranch {
					t.Errorf("first branch = %q, want default %q", ds.Branches[p.ID][0].Name, p.DefaultBranch)
				}
			}
		})
	}
}

func TestWeibullSample(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var sum float64
	const n = 5000
	for range n {
		v := weibullSample(rng, 1, 2)
		if v < 0 {
			t.Fatalf("weibullSample() = %v, want non-negative", v)
		}
		sum += v
	}
	// k=1 is exponential with mean lambda.
	if mean := sum / n; mean < 1.8 || mean > 2.2 {
		t.Errorf("mean = %v, want about 2", mean)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, "gitlab-mild", generate("mild", "uniform")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "gitlab-mild.json"))
	if err != nil || info.Size() == 0 {
		t.Errorf("Save() wrote nothing: %v", err)
	}
}

func TestHandler_Auth(t *testing.T) {
	h := NewHandler(generate("mild", "uniform"), "secret")
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"NoToken", "", "", http.StatusUnauthorized},
		{"WrongToken", gitlab.PrivateTokenHeader, "nope", http.StatusUnauthorized},
		{"PrivateToken", gitlab.PrivateTokenHeader, "secret", http.StatusOK},
		{"Bearer", "Authorization", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v4/user", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("GET /api/v4/user = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandler_Pagination(t *testing.T) {
	ds := generate("mild", "uniform")
	h := NewHandler(ds, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v4/projects/1/repository/commits?per_page=500&page=2", nil)
	req.Header.Set(gitlab.PrivateTokenHeader, "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Per-Page"); got != "100" {
		t.Errorf("X-Per-Page = %s, want 100", got)
	}
	if got := rec.Header().Get("X-Page"); got != "2" {
		t.Errorf("X-Page = %s, want 2", got)
	}
	if rec.Header().Get("X-Prev-Page") != "1" {
		t.Errorf("X-Prev-Page = %q, want 1", rec.Header().Get("X-Prev-Page"))
	}
}

func TestHandler_PageBeyondEnd(t *testing.T) {
	h := NewHandler(generate("mild", "uniform"), "secret")
	for _, page := range []string{"50", "9223372036854775807"} {
		t.Run(page, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v4/projects?per_page=100&page="+page, nil)
			req.Header.Set(gitlab.PrivateTokenHeader, "secret")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
				t.Errorf("body = %s, want empty page", got)
			}
		})
	}
}

func TestHandler_ServesClient(t *testing.T) {
	ds := generate("drift", "weibull")
	srv := httptest.NewServer(NewHandler(ds, "secret"))
	t.Cleanup(srv.Close)

	client := gitlab.NewClient(gitlab.Config{BaseURL: srv.URL, Token: "secret", TTL: gitlab.DefaultTTLPolicy()}, nil, nil)
	ctx := context.Background()

	projects, err := client.Projects(ctx, gitlab.ListOptions{})
	if err != nil {
		t.Fatalf("Projects() error = %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("len(Projects()) = %d, want 3", len(projects))
	}

	since := testNow.AddDate(0, 0, -7)
	commits, err := client.CommitsWithStats(ctx, 1, gitlab.CommitOptions{Since: since})
	if err != nil {
		t.Fatalf("CommitsWithStats() error = %v", err)
	}
	for _, c := range commits {
		if c.CommittedDate.Before(since) {
			t.Errorf("commit %s before since", c.ShortID)
		}
		if c.Stats == nil {
			t.Errorf("commit %s has no stats", c.ShortID)
		}
	}

	plain, err := client.Commits(ctx, 1, gitlab.CommitOptions{Since: since})
	if err != nil {
		t.Fatalf("Commits() error = %v", err)
	}
	for _, c := range plain {
		if c.Stats != nil {
			t.Errorf("commit %s has stats without with_stats", c.ShortID)
		}
	}

	pls, err := client.Pipelines(ctx, 1, gitlab.PipelineOptions{})
	if err != nil || len(pls) == 0 {
		t.Fatalf("Pipelines() = %d, %v, want some", len(pls), err)
	}
	if _, err := client.Pipeline(ctx, 1, pls[0].ID); err != nil {
		t.Errorf("Pipeline() error = %v", err)
	}

	_, err = client.Project(ctx, 99)
	if !gitlab.IsNotFound(err) {
		t.Errorf("Project(99) error = %v, want not found", err)
	}
}
