package testing

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/desertthunder/spotbridge/internal/shared"
)

// RecordedRequest is a request received by [FakeSpotify].
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Form   url.Values
	Body   string
}

// FakeSpotify serves the accounts service at its root and the Web API under /v1.
//
// Unregistered routes answer 404 with a Spotify-style error body. Every request is recorded.
type FakeSpotify struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewFakeSpotify starts a fake server that is closed on test cleanup.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{handlers: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns Spotify settings pointing at the fake server.
func (f *FakeSpotify) Config() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:       "test_client_id",
		ClientSecret:   "test_client_secret",
		RedirectURI:    "http://127.0.0.1:3000/callback",
		AccountsURL:    f.Server.URL,
		APIURL:         f.Server.URL + "/v1",
		TimeoutSeconds: 5,
	}
}

// Handle registers h for method and path, replacing any earlier registration.
func (f *FakeSpotify) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

// Respond registers a fixed JSON response for method and path. An empty body writes no content.
func (f *FakeSpotify) Respond(method, path string, status int, body string) {
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		if body != "" {
			io.WriteString(w, body)
		}
	})
}

// RespondToken registers a successful token endpoint response.
func (f *FakeSpotify) RespondToken(accessToken, refreshToken string, expiresIn int) {
	body := fmt.Sprintf(`{"access_token":%q,"token_type":"Bearer","expires_in":%d,"scope":"user-read-private user-read-email"`,
		accessToken, expiresIn)
	if refreshToken != "" {
		body += fmt.Sprintf(`,"refresh_token":%q`, refreshToken)
	}
	f.Respond(http.MethodPost, "/api/token", http.StatusOK, body+"}")
}

// Requests returns the recorded requests for method and path.
func (f *FakeSpotify) Requests(method, path string) []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []RecordedRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// CallCount returns how many requests were made to method and path.
func (f *FakeSpotify) CallCount(method, path string) int {
	return len(f.Requests(method, path))
}

// TotalCalls returns the number of requests received on any route.
func (f *FakeSpotify) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	rec := RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   string(body),
	}
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		rec.Form, _ = url.ParseQuery(string(body))
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h, ok := f.handlers[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"status":404,"message":"Service not found"}}`)
		return
	}
	h(w, r)
}
