package engine

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"gitlab-pulse/internal/gitlab"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

// MaxPerPage mirrors GitLab's own page size limit.
const MaxPerPage = 100

// NewHandler serves ds under /api/v4 the way GitLab does, including
// pagination headers. Requests must carry token as PRIVATE-TOKEN or bearer.
func NewHandler(ds *Dataset, token string) http.Handler {
	h := &handler{ds: ds}
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v4", func(r chi.Router) {
		r.Use(requireToken(token))
		r.Get("/user", h.user)
		r.Get("/projects", h.projects)
		r.Get("/merge_requests", h.allMergeRequests)
		r.Get("/issues", h.allIssues)
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/", h.project)
			r.Get("/merge_requests", h.mergeRequests)
			r.Get("/merge_requests/{iid}", h.mergeRequest)
			r.Get("/pipelines", h.pipelines)
			r.Get("/pipelines/{pid}", h.pipeline)
			r.Get("/issues", h.issues)
			r.Get("/statistics", h.statistics)
			r.Get("/repository/commits", h.commits)
			r.Get("/repository/branches", h.branches)
			r.Get("/repository/tree", h.tree)
		})
	})
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if r.Header.Get(gitlab.PrivateTokenHeader) != token && bearer != token {
				writeMessage(w, http.StatusUnauthorized, "401 Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type handler struct {
	ds *Dataset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func atoi(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}

// paginate writes one page of items with GitLab's X-* headers.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T) {
	q := r.URL.Query()
	page := atoi(q.Get("page"), 1)
	perPage := min(atoi(q.Get("per_page"), 20), MaxPerPage)

	total := len(items)
	pages := max((total+perPage-1)/perPage, 1)
	// Past the last page is empty; clamping keeps the offset from overflowing.
	page = min(page, pages+1)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	w.Header().Set("X-Total", strconv.Itoa(total))
	w.Header().Set("X-Total-Pages", strconv.Itoa(pages))
	w.Header().Set("X-Page", strconv.Itoa(page))
	w.Header().Set("X-Per-Page", strconv.Itoa(perPage))
	if page < pages {
		w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
	}
	if page > 1 {
		w.Header().Set("X-Prev-Page", strconv.Itoa(page-1))
	}
	chunk := items[start:end]
	if chunk == nil {
		chunk = []T{}
	}
	writeJSON(w, http.StatusOK, chunk)
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (h *handler) projectID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err == nil {
		for _, p := range h.ds.Projects {
			if p.ID == id {
				return id, true
			}
		}
	}
	writeMessage(w, http.StatusNotFound, "404 Project Not Found")
	return 0, false
}

func (h *handler) user(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ds.User)
}

func (h *handler) projects(w http.ResponseWriter, r *http.Request) {
	paginate(w, r, h.ds.Projects)
}

func (h *handler) project(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	i := slices.IndexFunc(h.ds.Projects, func(p gitlab.Project) bool { return p.ID == id })
	writeJSON(w, http.StatusOK, h.ds.Projects[i])
}

func byState[T any](r *http.Request, items []T, state func(T) string) []T {
	want := r.URL.Query().Get("state")
	if want == "" || want == "all" {
		return items
	}
	return filter(items, func(it T) bool { return state(it) == want })
}

func mrState(mr gitlab.MergeRequest) string { return mr.State }
func issueState(is gitlab.Issue) string     { return is.State }

func (h *handler) mergeRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	paginate(w, r, byState(r, h.ds.MergeRequests[id], mrState))
}

func (h *handler) allMergeRequests(w http.ResponseWriter, r *http.Request) {
	var all []gitlab.MergeRequest
	for _, p := range h.ds.Projects {
		all = append(all, h.ds.MergeRequests[p.ID]...)
	}
	slices.SortFunc(all, func(a, b gitlab.MergeRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })
	paginate(w, r, byState(r, all, mrState))
}

func (h *handler) mergeRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	iid, _ := strconv.Atoi(chi.URLParam(r, "iid"))
	for _, mr := range h.ds.MergeRequests[id] {
		if mr.IID == iid {
			writeJSON(w, http.StatusOK, mr)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "404 Not found")
}

func (h *handler) pipelines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	status, ref := q.Get("status"), q.Get("ref")
	paginate(w, r, filter(h.ds.Pipelines[id], func(p gitlab.Pipeline) bool {
		return (status == "" || p.Status == status) && (ref == "" || p.Ref == ref)
	}))
}

func (h *handler) pipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	pid, _ := strconv.Atoi(chi.URLParam(r, "pid"))
	d, found := h.ds.Details[pid]
	if !found || d.ProjectID != id {
		writeMessage(w, http.StatusNotFound, "404 Not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) issues(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	paginate(w, r, byState(r, h.ds.Issues[id], issueState))
}

func (h *handler) allIssues(w http.ResponseWriter, r *http.Request) {
	var all []gitlab.Issue
	for _, p := range h.ds.Projects {
		all = append(all, h.ds.Issues[p.ID]...)
	}
	slices.SortFunc(all, func(a, b gitlab.Issue) int { return b.CreatedAt.Compare(a.CreatedAt) })
	paginate(w, r, byState(r, all, issueState))
}

func (h *handler) statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.ds.Statistics[id])
}

func (h *handler) commits(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var since, until time.Time
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "since is invalid")
			return
		}
		since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "until is invalid")
			return
		}
		until = t
	}
	withStats := q.Get("with_stats") == "true"

	commits := filter(h.ds.Commits[id], func(c gitlab.Commit) bool {
		return (since.IsZero() || !c.CommittedDate.Before(since)) && (until.IsZero() || !c.CommittedDate.After(until))
	})
	if !withStats {
		stripped := make([]gitlab.Commit, len(commits))
		for i, c := range commits {
			c.Stats = nil
			stripped[i] = c
		}
		commits = stripped
	}
	paginate(w, r, commits)
}

func (h *handler) branches(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectID(w, r)
	if !ok {
		return
	}
	search := r.URL.Query().Get("search")
	paginate(w, r, filter(h.ds.Branches[id], func(b gitlab.Branch) bool {
		return search == "" || strings.Contains(b.Name, search)
	}))
}

func (h *handler) tree(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.projectID(w, r); !ok {
		return
	}
	paginate(w, r, []gitlab.TreeNode{
		{ID: "a1", Name: "cmd", Type: "tree", Path: "cmd", Mode: "040000"},
		{ID: "a2", Name: "internal", Type: "tree", Path: "internal", Mode: "040000"},
		{ID: "a3", Name: "README.md", Type: "blob", Path: "README.md", Mode: "100644"},
		{ID: "a4", Name: "go.mod", Type: "blob", Path: "go.mod", Mode: "100644"},
	})
}
