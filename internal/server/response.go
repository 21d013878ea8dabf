package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/desertthunder/spotbridge/internal/services"
	"github.com/desertthunder/spotbridge/internal/shared"
)

// Error kinds reported in the "error" field of JSON error bodies.
const (
	KindConfiguration       = "configuration_error"
	KindBadRequest          = "bad_request"
	KindInvalidState        = "invalid_state"
	KindNotFound            = "not_found"
	KindReconnectRequired   = "reconnect_required"
	KindUpstreamUnavailable = "upstream_unavailable"
	KindUpstreamRejected    = "upstream_rejected"
	KindTokenExchange       = "token_exchange_failed"
	KindProfileFetch        = "profile_fetch_failed"
	KindPersistence         = "persistence_failure"
	KindRateLimited         = "rate_limited"
	KindInternal            = "internal_error"
	KindUnavailable         = "unavailable"
)

// ErrorResponse is the JSON body of every error answered by the server itself.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message, Details: details})
}

// writeFailure maps err onto a status and kind using the shared sentinels.
func writeFailure(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	writeError(w, status, kind, err.Error(), nil)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrInvalidConfig), errors.Is(err, shared.ErrMissingConfig):
		return http.StatusInternalServerError, KindConfiguration
	case errors.Is(err, shared.ErrInvalidState), errors.Is(err, shared.ErrStateNotFound):
		return http.StatusBadRequest, KindInvalidState
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest, KindBadRequest
	case errors.Is(err, shared.ErrTokenNotFound):
		return http.StatusNotFound, KindReconnectRequired
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusBadGateway, KindUpstreamUnavailable
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway, KindUpstreamRejected
	case errors.Is(err, shared.ErrPersistence):
		return http.StatusInternalServerError, KindPersistence
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// forward copies an upstream response to w. fallback, a JSON literal, is written when the upstream body is empty.
func forward(w http.ResponseWriter, resp *services.APIResponse, fallback string) {
	status := resp.StatusCode
	body := resp.Body
	isJSON := resp.IsJSON
	if len(body) == 0 && fallback != "" {
		body = []byte(fallback)
		isJSON = true
	}

	if ct := resp.ContentType(); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else if isJSON {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(status)
	if len(body) > 0 && bodyAllowed(status) {
		_, _ = w.Write(body)
	}
}

func bodyAllowed(status int) bool {
	return status != http.StatusNoContent && status != http.StatusNotModified && status >= 200
}

// frontendURL appends key=value to base, keeping any query base already carries.
func frontendURL(base, key, value string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
