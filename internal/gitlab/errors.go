package gitlab

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any non-2xx response from GitLab.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitLab API error: %d %s", e.StatusCode, statusText(e))
}

func statusText(e *APIError) string {
	if t := http.StatusText(e.StatusCode); t != "" {
		return t
	}
	return e.Status
}

// IsNotFound reports whether err is a 404 from GitLab.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether GitLab rejected the token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}
