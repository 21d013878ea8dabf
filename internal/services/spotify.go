// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spotbridge/internal/shared"
	"golang.org/x/oauth2"
)

// Scopes lists the permissions requested during authorization.
var Scopes = []string{
	"user-follow-read",
	"user-modify-playback-state",
	"user-read-playback-state",
	"user-top-read",
	"streaming",
	"user-read-private",
	"user-read-email",
}

// NoActiveDeviceReason is the player error reason Spotify reports when no device can receive playback.
const NoActiveDeviceReason = "NO_ACTIVE_DEVICE"

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTopTracks is the page returned by the user's top tracks endpoint.
type SpotifyTopTracks struct {
	Items  []SpotifyTrack `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// SpotifyDevice represents a playback device available to the user.
type SpotifyDevice struct {
	ID               string `json:"id"`
	IsActive         bool   `json:"is_active"`
	IsPrivateSession bool   `json:"is_private_session"`
	IsRestricted     bool   `json:"is_restricted"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	VolumePercent    *int   `json:"volume_percent"`
	SupportsVolume   bool   `json:"supports_volume"`
}

type playRequest struct {
	URIs []string `json:"uris"`
}

// TokenError is returned when the accounts service rejects a token request.
type TokenError struct {
	StatusCode  int
	Code        string
	Description string
	Body        string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token request rejected (status %d): %s", e.StatusCode, e.Detail())
}

func (e *TokenError) Unwrap() error { return shared.ErrAPIRequest }

// Detail returns the most specific description available: the OAuth error code,
// then its description, then the raw response body.
func (e *TokenError) Detail() string {
	switch {
	case e.Code != "":
		return e.Code
	case e.Description != "":
		return e.Description
	default:
		return e.Body
	}
}

// APIError is returned when a typed Web API call answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// SpotifyService implements [Service] for the Spotify accounts service and Web API.
//
// It carries no per-user state and is safe for concurrent use.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	api        *APIClient
	timeout    time.Duration
}

// NewSpotifyService creates a Spotify service from cfg. A nil client selects [http.DefaultClient].
//
// Credentials are not validated here; callers check [shared.SpotifyConfig.RequireLogin] and
// [shared.SpotifyConfig.RequireExchange] per request.
func NewSpotifyService(cfg shared.SpotifyConfig, client *http.Client) *SpotifyService {
	if client == nil {
		client = http.DefaultClient
	}

	accounts := strings.TrimRight(cfg.Accounts(), "/")
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   accounts + "/authorize",
			TokenURL:  accounts + "/api/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: client,
		api:        NewAPIClient(strings.TrimRight(cfg.API(), "/"), client, cfg.Timeout()),
		timeout:    cfg.Timeout(),
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the authorization URL the user is redirected to for login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access and refresh token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := s.tokenContext(ctx)
	defer cancel()

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, tokenRequestError("token exchange", err)
	}
	return token, nil
}

// Refresh mints a new access token from refreshToken. It always contacts the accounts service.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", shared.ErrInvalidInput)
	}

	ctx, cancel := s.tokenContext(ctx)
	defer cancel()

	token, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, tokenRequestError("token refresh", err)
	}
	return token, nil
}

// CurrentUser retrieves the profile of the user owning accessToken.
func (s *SpotifyService) CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	resp, err := s.api.Get(ctx, "/me", accessToken)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var user SpotifyUser
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile: %v", shared.ErrAPIRequest, err)
	}
	if user.ID == "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return &user, nil
}

// Following lists up to 50 artists the user follows.
func (s *SpotifyService) Following(ctx context.Context, accessToken string) (*APIResponse, error) {
	return s.api.Get(ctx, "/me/following?type=artist&limit=50", accessToken)
}

// Pause pauses playback on the user's active device.
func (s *SpotifyService) Pause(ctx context.Context, accessToken string) (*APIResponse, error) {
	return s.api.Put(ctx, "/me/player/pause", accessToken, nil)
}

// Devices lists the user's available playback devices.
func (s *SpotifyService) Devices(ctx context.Context, accessToken string) (*APIResponse, error) {
	return s.api.Get(ctx, "/me/player/devices", accessToken)
}

// TopTracks lists the user's top tracks.
func (s *SpotifyService) TopTracks(ctx context.Context, accessToken string, limit int) (*APIResponse, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	return s.api.Get(ctx, fmt.Sprintf("/me/top/tracks?limit=%d", limit), accessToken)
}

// Play starts playback of uris on the user's active device.
func (s *SpotifyService) Play(ctx context.Context, accessToken string, uris []string) (*APIResponse, error) {
	return s.api.Put(ctx, "/me/player/play", accessToken, playRequest{URIs: uris})
}

// tokenContext bounds a token request and routes it through the service's HTTP client.
func (s *SpotifyService) tokenContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// tokenRequestError classifies an oauth2 failure as a rejection or a network failure.
func tokenRequestError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		tokenErr := &TokenError{
			Code:        re.ErrorCode,
			Description: re.ErrorDescription,
			Body:        string(re.Body),
		}
		if re.Response != nil {
			tokenErr.StatusCode = re.Response.StatusCode
		}
		return tokenErr
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrServiceUnavailable, op, err)
}

// ExpiresIn returns the number of seconds until token expires, or 0 when it carries no expiry.
func ExpiresIn(token *oauth2.Token, now time.Time) int64 {
	if token == nil || token.Expiry.IsZero() {
		return 0
	}
	secs := int64(token.Expiry.Sub(now).Round(time.Second) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// Scope returns the space-delimited scope granted with token, if the provider reported one.
func Scope(token *oauth2.Token) string {
	if token == nil {
		return ""
	}
	if scope, ok := token.Extra("scope").(string); ok {
		return scope
	}
	return ""
}

// DecodeTopTracks parses a top tracks response body.
func DecodeTopTracks(body []byte) (*SpotifyTopTracks, error) {
	var page SpotifyTopTracks
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: failed to decode top tracks: %v", shared.ErrAPIRequest, err)
	}
	return &page, nil
}

// DecodeDevices parses a device list response body. An empty body yields an empty list.
func DecodeDevices(body []byte) ([]SpotifyDevice, error) {
	devices := []SpotifyDevice{}
	if len(body) == 0 {
		return devices, nil
	}

	var payload struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return devices, fmt.Errorf("%w: failed to decode devices: %v", shared.ErrAPIRequest, err)
	}
	if payload.Devices != nil {
		devices = payload.Devices
	}
	return devices, nil
}

type playerError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// IsNoActiveDevice reports whether a player error body says no device is available for playback.
//
// The reason may appear at the top level or nested under "error". Messages match when they contain
// NO_ACTIVE_DEVICE ignoring case, with spaces read as underscores. A body that is not JSON is
// treated as the message itself.
func IsNoActiveDevice(body []byte) bool {
	var payload struct {
		playerError
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return mentionsNoActiveDevice(string(body))
	}

	var nested playerError
	if len(payload.Error) > 0 {
		_ = json.Unmarshal(payload.Error, &nested)
	}

	for _, reason := range []string{payload.Reason, nested.Reason} {
		if strings.EqualFold(reason, NoActiveDeviceReason) {
			return true
		}
	}
	return mentionsNoActiveDevice(payload.Message) || mentionsNoActiveDevice(nested.Message)
}

func mentionsNoActiveDevice(msg string) bool {
	normalized := strings.ReplaceAll(strings.ToUpper(msg), " ", "_")
	return strings.Contains(normalized, NoActiveDeviceReason)
}
