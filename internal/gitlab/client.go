// Package gitlab is a read-only client for the GitLab REST API. Responses
// flow through a TTL cache and a request deduplicator keyed by the endpoint
// path and query.
package gitlab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gitlab-pulse/internal/cache"
	"gitlab-pulse/internal/dedup"
	"gitlab-pulse/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 64 << 20

// TTLPolicy sets how long each resource stays cached. A zero duration
// disables caching for that resource.
type TTLPolicy struct {
	Projects      time.Duration
	Project       time.Duration
	MergeRequests time.Duration
	Commits       time.Duration
	Issues        time.Duration
	Pipelines     time.Duration
}

// DefaultTTLPolicy reflects how often each resource tends to change.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Projects:      15 * time.Minute,
		Project:       30 * time.Minute,
		MergeRequests: 5 * time.Minute,
		Commits:       5 * time.Minute,
		Issues:        5 * time.Minute,
		Pipelines:     3 * time.Minute,
	}
}

// Config holds the connection settings for GitLab.
type Config struct {
	BaseURL    string
	Token      string
	APIVersion string
	Timeout    time.Duration
	TTL        TTLPolicy

	// Transport overrides the base HTTP transport; auth is layered on top.
	Transport http.RoundTripper
}

// APIBase returns {BaseURL}/api/{version} without a trailing slash.
func (c Config) APIBase() string {
	version := c.APIVersion
	if version == "" {
		version = "v4"
	}
	return strings.TrimRight(c.BaseURL, "/") + "/api/" + version
}

type Client struct {
	apiBase    string
	ttl        TTLPolicy
	httpClient *http.Client
	store      *cache.Cache[[]byte]
	inflight   *dedup.Group[[]byte]
}

// NewClient builds a client around the given cache and deduplicator. Nil
// values get private instances with default settings.
func NewClient(cfg Config, store *cache.Cache[[]byte], inflight *dedup.Group[[]byte]) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if store == nil {
		store = cache.New[[]byte]("gitlab")
	}
	if inflight == nil {
		inflight = dedup.New[[]byte](nil, dedup.DefaultGrace)
	}
	return &Client{
		apiBase: cfg.APIBase(),
		ttl:     cfg.TTL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: NewTransport(cfg.Token, cfg.Transport),
		},
		store:    store,
		inflight: inflight,
	}
}

// ClearCache drops cached responses whose key contains pattern.
func (c *Client) ClearCache(pattern string) int {
	n := c.store.Clear(pattern)
	log.Info().Str("pattern", pattern).Int("removed", n).Msg("Cleared GitLab response cache")
	return n
}

func (c *Client) Projects(ctx context.Context, opt ListOptions) ([]Project, error) {
	q := url.Values{}
	opt.apply(q)
	return list(ctx, c, "projects", endpoint("/projects", q), c.ttl.Projects, func(p Project) bool { return p.ID != 0 })
}

func (c *Client) Project(ctx context.Context, id int) (*Project, error) {
	var p Project
	if err := c.get(ctx, "project", fmt.Sprintf("/projects/%d", id), c.ttl.Project, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MergeRequests lists merge requests of one project, or across all projects
// visible to the token when projectID is 0.
func (c *Client) MergeRequests(ctx context.Context, projectID int, opt MergeRequestOptions) ([]MergeRequest, error) {
	ep := endpoint(scoped(projectID, "/merge_requests"), opt.values())
	return list(ctx, c, "merge_requests", ep, c.ttl.MergeRequests, func(mr MergeRequest) bool { return mr.ID != 0 })
}

func (c *Client) MergeRequest(ctx context.Context, projectID, iid int) (*MergeRequest, error) {
	var mr MergeRequest
	if err := c.get(ctx, "merge_request", fmt.Sprintf("/projects/%d/merge_requests/%d", projectID, iid), 0, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

// Pipelines lists pipelines of one project, or the global listing when
// projectID is 0.
func (c *Client) Pipelines(ctx context.Context, projectID int, opt PipelineOptions) ([]Pipeline, error) {
	ep := endpoint(scoped(projectID, "/pipelines"), opt.values())
	return list(ctx, c, "pipelines", ep, c.ttl.Pipelines, func(p Pipeline) bool { return p.ID != 0 })
}

func (c *Client) Pipeline(ctx context.Context, projectID, pipelineID int) (*PipelineDetail, error) {
	var p PipelineDetail
	if err := c.get(ctx, "pipeline", fmt.Sprintf("/projects/%d/pipelines/%d", projectID, pipelineID), 0, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Commits(ctx context.Context, projectID int, opt CommitOptions) ([]Commit, error) {
	ep := endpoint(fmt.Sprintf("/projects/%d/repository/commits", projectID), opt.values())
	return list(ctx, c, "commits", ep, c.ttl.Commits, func(cm Commit) bool { return cm.ID != "" })
}

// CommitsWithStats is never cached; per-file stats are expensive to produce
// and only requested for one-off views.
func (c *Client) CommitsWithStats(ctx context.Context, projectID int, opt CommitOptions) ([]Commit, error) {
	q := opt.values()
	q.Set("with_stats", "true")
	ep := endpoint(fmt.Sprintf("/projects/%d/repository/commits", projectID), q)
	return list(ctx, c, "commits_with_stats", ep, 0, func(cm Commit) bool { return cm.ID != "" })
}

func (c *Client) Issues(ctx context.Context, projectID int, opt IssueOptions) ([]Issue, error) {
	ep := endpoint(scoped(projectID, "/issues"), opt.values())
	return list(ctx, c, "issues", ep, c.ttl.Issues, func(i Issue) bool { return i.ID != 0 })
}

func (c *Client) Branches(ctx context.Context, projectID int, opt BranchOptions) ([]Branch, error) {
	ep := endpoint(fmt.Sprintf("/projects/%d/repository/branches", projectID), opt.values())
	return list(ctx, c, "branches", ep, 0, func(b Branch) bool { return b.Name != "" })
}

func (c *Client) RepositoryTree(ctx context.Context, projectID int, opt TreeOptions) ([]TreeNode, error) {
	ep := endpoint(fmt.Sprintf("/projects/%d/repository/tree", projectID), opt.values())
	return list(ctx, c, "tree", ep, 0, func(n TreeNode) bool { return n.Path != "" })
}

func (c *Client) ProjectStatistics(ctx context.Context, projectID int) (*ProjectStatistics, error) {
	var s ProjectStatistics
	if err := c.get(ctx, "statistics", fmt.Sprintf("/projects/%d/statistics", projectID), 0, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "user", "/user", 0, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func scoped(projectID int, path string) string {
	if projectID == 0 {
		return path
	}
	return "/projects/" + strconv.Itoa(projectID) + path
}

// list decodes a JSON array and drops entries that carry no identity.
func list[T any](ctx context.Context, c *Client, resource, ep string, ttl time.Duration, valid func(T) bool) ([]T, error) {
	var items []T
	if err := c.get(ctx, resource, ep, ttl, &items); err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if valid(it) {
			out = append(out, it)
		}
	}
	if dropped := len(items) - len(out); dropped > 0 {
		log.Warn().Str("endpoint", ep).Int("dropped", dropped).Msg("Dropped malformed GitLab records")
	}
	return out, nil
}

// get resolves ep through the cache, then the deduplicator, then the network,
// and decodes a fresh value for every caller.
func (c *Client) get(ctx context.Context, resource, ep string, ttl time.Duration, out any) error {
	body, err := c.fetch(ctx, resource, ep, ttl)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode GitLab response for %s: %w", ep, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, resource, ep string, ttl time.Duration) ([]byte, error) {
	if ttl > 0 {
		if body, ok := c.store.Get(ep); ok {
			log.Debug().Str("endpoint", ep).Msg("Cache hit")
			return body, nil
		}
	}

	return c.inflight.Do(ctx, ep, func(ctx context.Context) ([]byte, error) {
		body, err := c.do(ctx, resource, ep)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			c.store.Set(ep, body, ttl)
		}
		return body, nil
	})
}

func (c *Client) do(ctx context.Context, resource, ep string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+ep, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("endpoint", ep).Msg("Requesting GitLab")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(resource, "error").Inc()
		return nil, fmt.Errorf("GitLab request %s failed: %w", ep, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read GitLab response for %s: %w", ep, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Endpoint:   ep,
			Body:       truncate(string(body), 512),
		}
		log.Debug().Str("endpoint", ep).Int("status", resp.StatusCode).Msg("GitLab returned an error")
		return nil, apiErr
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
