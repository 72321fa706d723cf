// Package proxy forwards read-only requests to the GitLab REST API with the
// server-side token attached, so that browsers never see the token.
package proxy

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gitlab-pulse/internal/gitlab"
	"gitlab-pulse/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// NotConfiguredMessage is returned when the GitLab URL or token is missing.
const NotConfiguredMessage = "GitLab proxy is not configured. Please set GITLAB_URL and GITLAB_API_TOKEN"

// Pagination headers GitLab sets on list endpoints.
var passthroughHeaders = []string{
	"X-Total", "X-Total-Pages", "X-Page", "X-Per-Page", "X-Next-Page", "X-Prev-Page", "Link",
}

// ErrorBody is the JSON document written for every failed proxy request.
type ErrorBody struct {
	Error    string `json:"error"`
	Upstream string `json:"upstream,omitempty"`
	URL      string `json:"url,omitempty"`
}

type Handler struct {
	apiBase    string
	configured bool
	prefix     string
	client     *http.Client
}

// New returns a handler that strips prefix from the request path and
// forwards the rest to {BaseURL}/api/{version}.
func New(cfg gitlab.Config, prefix string) *Handler {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Handler{
		apiBase:    cfg.APIBase(),
		configured: cfg.BaseURL != "" && cfg.Token != "",
		prefix:     strings.TrimRight(prefix, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: gitlab.NewTransport(cfg.Token, cfg.Transport),
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.fail(w, http.StatusMethodNotAllowed, ErrorBody{Error: "Method not allowed"})
		return
	}
	if !h.configured {
		h.fail(w, http.StatusInternalServerError, ErrorBody{Error: NotConfiguredMessage})
		return
	}

	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, h.prefix), "/")
	target := h.apiBase + "/" + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, ErrorBody{Error: err.Error()})
		return
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := h.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Proxy request failed")
		h.fail(w, http.StatusInternalServerError, ErrorBody{Error: unwrapURLError(err).Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstream, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &gitlab.APIError{StatusCode: resp.StatusCode, Status: resp.Status}
		log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("GitLab rejected proxied request")
		h.fail(w, resp.StatusCode, ErrorBody{Error: apiErr.Error(), Upstream: string(upstream), URL: target})
		return
	}

	for _, k := range passthroughHeaders {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(resp.StatusCode)
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("Proxy response copy interrupted")
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, body ErrorBody) {
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the
// request URL.
func unwrapURLError(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}
