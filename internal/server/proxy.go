package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotbridge/internal/models"
	"github.com/desertthunder/spotbridge/internal/services"
	"github.com/desertthunder/spotbridge/internal/shared"
)

const (
	userIDParam  = "spotifyUserId"
	userIDHeader = "x-spotify-user-id"

	topTracksLimit       = 10
	noActiveDeviceStatus = "NO_ACTIVE_DEVICE"
	noActiveDeviceText   = "No active Spotify device found. Please open Spotify on a device or transfer playback."
)

// TokenResponse carries a short-lived access token for client-side playback.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// NoActiveDeviceResponse replaces a play failure caused by the user having no active device.
type NoActiveDeviceResponse struct {
	Status  string                   `json:"status"`
	Message string                   `json:"message"`
	Devices []services.SpotifyDevice `json:"devices"`
}

// grant is the refreshed credential a proxied action runs with.
type grant struct {
	record      *models.UserToken
	accessToken string
}

type action func(w http.ResponseWriter, r *http.Request, g grant)

// ProxyHandler serves the player gateway under a path prefix.
//
// Every action loads the caller's stored refresh token, mints a fresh access token, and performs
// exactly one upstream operation.
type ProxyHandler struct {
	prefix  string
	service services.Gateway
	tokens  models.TokenStore
	logger  *log.Logger
	now     func() time.Time
}

// NewProxyHandler creates the gateway for routes under prefix (e.g. "/spotify").
func NewProxyHandler(prefix string, service services.Gateway, tokens models.TokenStore, logger *log.Logger) *ProxyHandler {
	return &ProxyHandler{
		prefix:  prefix,
		service: service,
		tokens:  tokens,
		logger:  shared.WithLogger(logger, "component", "proxy"),
		now:     time.Now,
	}
}

// Routes returns the gateway route table. Unlisted paths under the prefix answer 404 without any lookup.
func (h *ProxyHandler) Routes() []Route {
	p := h.prefix
	return []Route{
		{Pattern: "OPTIONS " + p + "/", Handler: h.Preflight},
		{Pattern: "GET " + p + "/following", Handler: h.authorized(h.following)},
		{Pattern: "PUT " + p + "/player/stop", Handler: h.authorized(h.stop)},
		{Pattern: "POST " + p + "/player/stop", Handler: h.authorized(h.stop)},
		{Pattern: "GET " + p + "/player/devices", Handler: h.authorized(h.devices)},
		{Pattern: "GET " + p + "/player/token", Handler: h.authorized(h.token)},
		{Pattern: "GET " + p + "/player/play-top", Handler: h.authorized(h.playTop)},
		{Pattern: "POST " + p + "/player/play-top", Handler: h.authorized(h.playTop)},
		{Pattern: "PUT " + p + "/player/play-top", Handler: h.authorized(h.playTop)},
		{Pattern: "PATCH " + p + "/player/play-top", Handler: h.authorized(h.playTop)},
		{Pattern: "DELETE " + p + "/player/play-top", Handler: h.authorized(h.playTop)},
		{Pattern: p + "/", Handler: NotFound},
	}
}

// Preflight answers CORS preflight requests without touching the store or the provider.
func (h *ProxyHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", allowMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
	w.WriteHeader(http.StatusOK)
}

// NotFound answers unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, KindNotFound, "Not found", nil)
}

func userID(r *http.Request) string {
	if id := r.URL.Query().Get(userIDParam); id != "" {
		return id
	}
	return r.Header.Get(userIDHeader)
}

// authorized resolves the caller and refreshes their access token before running next.
func (h *ProxyHandler) authorized(next action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		if id == "" {
			writeError(w, http.StatusBadRequest, KindBadRequest,
				"Missing spotifyUserId (query param or x-spotify-user-id header)", nil)
			return
		}

		record, err := h.tokens.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, shared.ErrTokenNotFound) {
				writeError(w, http.StatusNotFound, KindReconnectRequired,
					"No refresh token found for user; reconnect required", nil)
				return
			}
			h.logger.Error("failed to load user token", "user", id, "error", err)
			writeFailure(w, err)
			return
		}

		token, err := h.service.Refresh(r.Context(), record.RefreshToken)
		if err != nil {
			h.logger.Warn("access token refresh failed", "user", id, "error", err)
			writeError(w, http.StatusBadGateway, KindUpstreamUnavailable,
				"Failed to refresh access token: "+err.Error(), nil)
			return
		}

		next(w, r, grant{record: record, accessToken: token.AccessToken})
	}
}

// upstreamFailed reports a transport failure on an action call.
func (h *ProxyHandler) upstreamFailed(w http.ResponseWriter, g grant, op string, err error) {
	h.logger.Warn("upstream call failed", "op", op, "user", g.record.UserID, "error", err)
	writeFailure(w, err)
}

func (h *ProxyHandler) following(w http.ResponseWriter, r *http.Request, g grant) {
	resp, err := h.service.Following(r.Context(), g.accessToken)
	if err != nil {
		h.upstreamFailed(w, g, "following", err)
		return
	}
	forward(w, resp, "")
}

func (h *ProxyHandler) stop(w http.ResponseWriter, r *http.Request, g grant) {
	resp, err := h.service.Pause(r.Context(), g.accessToken)
	if err != nil {
		h.upstreamFailed(w, g, "pause", err)
		return
	}
	forward(w, resp, "")
}

func (h *ProxyHandler) devices(w http.ResponseWriter, r *http.Request, g grant) {
	resp, err := h.service.Devices(r.Context(), g.accessToken)
	if err != nil {
		h.upstreamFailed(w, g, "devices", err)
		return
	}
	if len(resp.Body) == 0 && !bodyAllowed(resp.StatusCode) {
		resp = &services.APIResponse{StatusCode: http.StatusOK, Headers: resp.Headers}
	}
	forward(w, resp, "[]")
}

// token performs a second refresh so the returned access token is independent of the one used to authorize.
func (h *ProxyHandler) token(w http.ResponseWriter, r *http.Request, g grant) {
	token, err := h.service.Refresh(r.Context(), g.record.RefreshToken)
	if err != nil {
		h.logger.Warn("access token refresh failed", "user", g.record.UserID, "error", err)
		writeError(w, http.StatusBadGateway, KindUpstreamUnavailable,
			"Failed to refresh access token: "+err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   services.ExpiresIn(token, h.now()),
	})
}

func (h *ProxyHandler) playTop(w http.ResponseWriter, r *http.Request, g grant) {
	ctx := r.Context()

	top, err := h.service.TopTracks(ctx, g.accessToken, topTracksLimit)
	if err != nil {
		h.upstreamFailed(w, g, "top tracks", err)
		return
	}
	if top.StatusCode != http.StatusOK {
		forward(w, top, "")
		return
	}

	page, err := services.DecodeTopTracks(top.Body)
	if err != nil {
		h.upstreamFailed(w, g, "top tracks", err)
		return
	}

	index := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		index, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, KindBadRequest, "Invalid index or no track found", nil)
			return
		}
	}
	if index < 0 || index >= len(page.Items) {
		writeError(w, http.StatusBadRequest, KindBadRequest, "Invalid index or no track found", nil)
		return
	}

	play, err := h.service.Play(ctx, g.accessToken, []string{page.Items[index].URI})
	if err != nil {
		h.upstreamFailed(w, g, "play", err)
		return
	}

	if play.StatusCode == http.StatusNotFound && services.IsNoActiveDevice(play.Body) {
		writeJSON(w, http.StatusConflict, NoActiveDeviceResponse{
			Status:  noActiveDeviceStatus,
			Message: noActiveDeviceText,
			Devices: h.availableDevices(r, g),
		})
		return
	}

	forward(w, play, "")
}

// availableDevices lists devices for the no-active-device payload. Failures yield an empty list.
func (h *ProxyHandler) availableDevices(r *http.Request, g grant) []services.SpotifyDevice {
	resp, err := h.service.Devices(r.Context(), g.accessToken)
	if err != nil {
		h.logger.Warn("device lookup failed", "user", g.record.UserID, "error", err)
		return []services.SpotifyDevice{}
	}
	if !resp.OK() {
		return []services.SpotifyDevice{}
	}

	devices, err := services.DecodeDevices(resp.Body)
	if err != nil {
		h.logger.Warn("device list undecodable", "user", g.record.UserID, "error", err)
		return []services.SpotifyDevice{}
	}
	return devices
}
