// Package server serves the dashboard views, the GitLab proxy and the
// Prometheus metrics over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gitlab-pulse/internal/dashboard"
	"gitlab-pulse/internal/gitlab"
	"gitlab-pulse/internal/metrics"
	"gitlab-pulse/internal/stats"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// ProxyPrefix is where the GitLab proxy is mounted.
const ProxyPrefix = "/api/gitlab"

// Views is the dashboard service as seen by the HTTP handlers.
type Views interface {
	Projects(ctx context.Context) ([]gitlab.Project, error)
	CurrentUser(ctx context.Context) (*gitlab.User, error)
	MergeRequests(ctx context.Context, projectID int) ([]gitlab.MergeRequest, error)
	Pipelines(ctx context.Context, projectID int) ([]gitlab.Pipeline, error)
	Statistics(ctx context.Context, period stats.Period) (*dashboard.Statistics, error)
	Overview(ctx context.Context) (*dashboard.Overview, error)
	Health(ctx context.Context) (stats.Health, error)
	Heatmap(ctx context.Context, projectID int) (stats.Heatmap, error)
	WeekHeatmap(ctx context.Context) (stats.Heatmap, error)
	EnergyMap(ctx context.Context, sortBy string) ([]stats.ProjectEnergy, error)
	Leaderboard(ctx context.Context, period stats.Period, limit int) ([]stats.Contributor, error)
	DeveloperActivity(ctx context.Context, projectID int) ([]stats.Contributor, error)
	BranchActivity(ctx context.Context, projectID int) ([]stats.BranchCommits, error)
	Velocity(ctx context.Context) ([]stats.VelocityWeek, error)
	ReviewStats(ctx context.Context) (stats.ReviewStats, error)
	IssueAging(ctx context.Context) (*dashboard.IssueAging, error)
	ActiveRepos(ctx context.Context) ([]stats.RepoActivity, error)
	PipelineMetrics(ctx context.Context) (*dashboard.PipelineMetrics, error)
	FailedPipelines(ctx context.Context) ([]stats.ProjectFailures, error)
	PipelineWall(ctx context.Context) ([]gitlab.Pipeline, error)
	ActivityFeed(ctx context.Context) ([]stats.Event, error)
	CodePulse(ctx context.Context) ([]stats.Event, error)
	ProjectDetail(ctx context.Context, id int) (*dashboard.ProjectDetail, error)
	Reset()
}

// CacheClearer drops cached GitLab responses whose key contains pattern.
type CacheClearer interface {
	ClearCache(pattern string) int
}

type Server struct {
	views Views
	cache CacheClearer
	proxy http.Handler
}

func New(views Views, cache CacheClearer, proxy http.Handler) *Server {
	return &Server{views: views, cache: cache, proxy: proxy}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(log.Logger))
	r.Use(requestID)
	r.Use(accessLog())
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		SendSuccess(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Handle(ProxyPrefix+"/*", s.proxy)
	r.Post("/api/cache/clear", s.clearCache)

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/user", s.currentUser)
		r.Get("/projects", s.projects)
		r.Get("/projects/{id}", s.projectDetail)
		r.Get("/merge-requests", s.mergeRequests)
		r.Get("/pipelines", s.pipelines)
		r.Get("/statistics", s.statistics)
		r.Get("/overview", s.overview)
		r.Get("/health", s.health)
		r.Get("/heatmap", s.heatmap)
		r.Get("/heatmap/week", s.weekHeatmap)
		r.Get("/energy", s.energy)
		r.Get("/leaderboard", s.leaderboard)
		r.Get("/developers", s.developers)
		r.Get("/branches", s.branches)
		r.Get("/velocity", s.velocity)
		r.Get("/reviews", s.reviews)
		r.Get("/issues/aging", s.issueAging)
		r.Get("/repos/active", s.activeRepos)
		r.Get("/pipelines/metrics", s.pipelineMetrics)
		r.Get("/pipelines/failed", s.failedPipelines)
		r.Get("/pipelines/wall", s.pipelineWall)
		r.Get("/activity", s.activity)
		r.Get("/pulse", s.codePulse)
	})

	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
