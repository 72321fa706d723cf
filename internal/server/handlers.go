package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"gitlab-pulse/internal/stats"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

const defaultLeaderboardLimit = 10

// intParam reads an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return n, nil
}

// serve writes the result of load, or the mapped error.
func serve[T any](w http.ResponseWriter, r *http.Request, load func(context.Context) (T, error)) {
	v, err := load(r.Context())
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	SendSuccess(w, v)
}

// serveProject is serve for views scoped by an optional project_id.
func serveProject[T any](w http.ResponseWriter, r *http.Request, load func(context.Context, int) (T, error)) {
	id, err := intParam(r, "project_id")
	if err != nil {
		SendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	serve(w, r, func(ctx context.Context) (T, error) { return load(ctx, id) })
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.CurrentUser)
}

func (s *Server) projects(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.Projects)
}

func (s *Server) projectDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		SendError(w, "invalid project id", http.StatusBadRequest)
		return
	}
	serve(w, r, func(ctx context.Context) (any, error) { return s.views.ProjectDetail(ctx, id) })
}

func (s *Server) mergeRequests(w http.ResponseWriter, r *http.Request) {
	serveProject(w, r, s.views.MergeRequests)
}

func (s *Server) pipelines(w http.ResponseWriter, r *http.Request) {
	serveProject(w, r, s.views.Pipelines)
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	period := stats.ParsePeriod(r.URL.Query().Get("period"))
	serve(w, r, func(ctx context.Context) (any, error) { return s.views.Statistics(ctx, period) })
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.Overview)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.Health)
}

func (s *Server) heatmap(w http.ResponseWriter, r *http.Request) {
	serveProject(w, r, s.views.Heatmap)
}

func (s *Server) weekHeatmap(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.WeekHeatmap)
}

func (s *Server) energy(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort")
	serve(w, r, func(ctx context.Context) (any, error) { return s.views.EnergyMap(ctx, sortBy) })
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		SendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if limit == 0 {
		limit = defaultLeaderboardLimit
	}
	period := stats.ParsePeriod(r.URL.Query().Get("period"))
	serve(w, r, func(ctx context.Context) (any, error) { return s.views.Leaderboard(ctx, period, limit) })
}

func (s *Server) developers(w http.ResponseWriter, r *http.Request) {
	serveProject(w, r, s.views.DeveloperActivity)
}

func (s *Server) branches(w http.ResponseWriter, r *http.Request) {
	serveProject(w, r, s.views.BranchActivity)
}

func (s *Server) velocity(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.Velocity)
}

func (s *Server) reviews(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.ReviewStats)
}

func (s *Server) issueAging(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.IssueAging)
}

func (s *Server) activeRepos(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.ActiveRepos)
}

func (s *Server) pipelineMetrics(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.PipelineMetrics)
}

func (s *Server) failedPipelines(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.FailedPipelines)
}

func (s *Server) pipelineWall(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.PipelineWall)
}

func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.ActivityFeed)
}

func (s *Server) codePulse(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s.views.CodePulse)
}

// clearCache drops GitLab responses matching ?pattern= (all when empty) and
// the dashboard's memoised commit history.
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	removed := s.cache.ClearCache(pattern)
	s.views.Reset()
	hlog.FromRequest(r).Info().Str("pattern", pattern).Int("removed", removed).Msg("Cache cleared")
	SendSuccess(w, map[string]any{"pattern": pattern, "removed": removed})
}
