package gitlab

import (
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultPerPage is applied to listings that do not set a page size.
	DefaultPerPage = 100
	// MaxPerPage bounds response size and latency.
	MaxPerPage = 500
)

// ClampPerPage applies the default and upper bound to a requested page size.
func ClampPerPage(n int) int {
	if n <= 0 {
		return DefaultPerPage
	}
	return min(n, MaxPerPage)
}

// ListOptions carries the pagination shared by every listing.
type ListOptions struct {
	Page    int
	PerPage int
}

func (o ListOptions) apply(q url.Values) {
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	q.Set("per_page", strconv.Itoa(ClampPerPage(o.PerPage)))
}

type MergeRequestOptions struct {
	ListOptions
	State string
}

func (o MergeRequestOptions) values() url.Values {
	q := url.Values{}
	o.apply(q)
	if o.State != "" {
		q.Set("state", o.State)
	}
	return q
}

type PipelineOptions struct {
	ListOptions
	Status string
	Ref    string
}

func (o PipelineOptions) values() url.Values {
	q := url.Values{}
	o.apply(q)
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Ref != "" {
		q.Set("ref", o.Ref)
	}
	return q
}

type CommitOptions struct {
	ListOptions
	Since time.Time
	Until time.Time
	Path  string
	Ref   string
}

func (o CommitOptions) values() url.Values {
	q := url.Values{}
	o.apply(q)
	if !o.Since.IsZero() {
		q.Set("since", o.Since.UTC().Format(time.RFC3339))
	}
	if !o.Until.IsZero() {
		q.Set("until", o.Until.UTC().Format(time.RFC3339))
	}
	if o.Path != "" {
		q.Set("path", o.Path)
	}
	if o.Ref != "" {
		q.Set("ref_name", o.Ref)
	}
	return q
}

type IssueOptions struct {
	ListOptions
	State  string
	Labels string
	Search string
}

func (o IssueOptions) values() url.Values {
	q := url.Values{}
	o.apply(q)
	if o.State != "" {
		q.Set("state", o.State)
	}
	if o.Labels != "" {
		q.Set("labels", o.Labels)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	return q
}

type BranchOptions struct {
	ListOptions
	Search string
}

func (o BranchOptions) values() url.Values {
	q := url.Values{}
	o.apply(q)
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	return q
}

type TreeOptions struct {
	ListOptions
	Path      string
	Ref       string
	Recursive bool
}

func (o TreeOptions) values() url.Values {
	q := url.Values{}
	o.apply(q)
	if o.Path != "" {
		q.Set("path", o.Path)
	}
	if o.Ref != "" {
		q.Set("ref", o.Ref)
	}
	if o.Recursive {
		q.Set("recursive", "true")
	}
	return q
}

// endpoint joins a path and query into a cache key. url.Values encodes keys
// in sorted order, so equal queries always produce the same key.
func endpoint(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
