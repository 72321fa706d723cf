package server

import (
	"context"
	"errors"
	"net/http"

	"gitlab-pulse/internal/gitlab"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"
)

// Response is the envelope of every dashboard endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// SendJSON sends a JSON response
func SendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// SendError sends an error response
func SendError(w http.ResponseWriter, message string, statusCode int) {
	SendJSON(w, statusCode, Response{Success: false, Message: message})
}

// SendSuccess sends a success response
func SendSuccess(w http.ResponseWriter, data any) {
	SendJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// sendFailure logs err against the request and maps it onto a status code.
func sendFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	hlog.FromRequest(r).Warn().Err(err).Int("status", status).Msg("Dashboard request failed")
	SendError(w, err.Error(), status)
}

func statusFor(err error) int {
	var apiErr *gitlab.APIError
	switch {
	case gitlab.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
