// Raw HTTP client for the Spotify Web API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/spotbridge/internal/shared"
)

// APIClient performs bearer-authenticated requests against a JSON API and returns the raw response for any status.
//
// Transport failures and timeouts wrap [shared.ErrServiceUnavailable]; non-2xx responses are not errors.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewAPIClient creates a client for baseURL. A nil client selects [http.DefaultClient]; a zero timeout disables the bound.
func NewAPIClient(baseURL string, client *http.Client, timeout time.Duration) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIClient{
		baseURL:    baseURL,
		httpClient: client,
		timeout:    timeout,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool // IsJSON reports whether Body is a well-formed JSON document
}

// OK reports whether the status code is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentType returns the upstream Content-Type header.
func (r *APIResponse) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// Get performs a GET request to the specified path.
func (a *APIClient) Get(ctx context.Context, path, accessToken string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, accessToken, nil)
}

// Put performs a PUT request, JSON-encoding payload when it is not nil.
func (a *APIClient) Put(ctx context.Context, path, accessToken string, payload any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, accessToken, payload)
}

// Do performs a request to baseURL+path with a bearer token and returns the raw response.
func (a *APIClient) Do(ctx context.Context, method, path, accessToken string, payload any) (*APIResponse, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode request body: %v", shared.ErrInvalidInput, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrServiceUnavailable, err)
	}

	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrServiceUnavailable, err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
		IsJSON:     len(data) > 0 && json.Valid(data),
	}, nil
}
