package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotbridge/internal/models"
	"github.com/desertthunder/spotbridge/internal/services"
	"github.com/desertthunder/spotbridge/internal/shared"
)

// ConnectedResponse is the callback body when no frontend is configured.
type ConnectedResponse struct {
	Message       string `json:"message"`
	SpotifyUserID string `json:"spotifyUserId"`
}

// AuthHandler implements the authorization code flow: login redirect and callback.
type AuthHandler struct {
	spotify  shared.SpotifyConfig
	auth     shared.AuthConfig
	frontend string
	service  services.Authorizer
	tokens   models.TokenStore
	states   models.StateStore
	logger   *log.Logger
	now      func() time.Time
}

// NewAuthHandler creates the authorization flow handler. states may be nil when state verification is off.
func NewAuthHandler(cfg *shared.Config, service services.Authorizer, tokens models.TokenStore, states models.StateStore, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		spotify:  cfg.Credentials.Spotify,
		auth:     cfg.Auth,
		frontend: cfg.Server.FrontendBaseURL,
		service:  service,
		tokens:   tokens,
		states:   states,
		logger:   shared.WithLogger(logger, "component", "auth"),
		now:      time.Now,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []Route {
	return []Route{
		{Pattern: "GET /login", Handler: h.Login},
		{Pattern: "GET /callback", Handler: h.Callback},
	}
}

func (h *AuthHandler) verifyState() bool {
	return h.auth.VerifyState && h.states != nil
}

// Login redirects the browser to the provider's authorize page with a fresh state nonce.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := h.spotify.RequireLogin(); err != nil {
		h.logger.Error("login misconfigured", "error", err)
		writeError(w, http.StatusInternalServerError, KindConfiguration, err.Error(), nil)
		return
	}

	state := shared.GenerateNonce()
	if h.verifyState() {
		if err := h.states.Save(r.Context(), models.NewAuthState(state, h.now(), h.auth.StateTTL())); err != nil {
			h.logger.Error("failed to save auth state", "error", err)
			writeFailure(w, err)
			return
		}
	}

	http.Redirect(w, r, h.service.AuthURL(state), http.StatusFound)
}

// Callback completes the authorization: exchange, profile lookup, persist, then redirect or confirm.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.spotify.RequireExchange(); err != nil {
		h.logger.Error("callback misconfigured", "error", err)
		writeError(w, http.StatusInternalServerError, KindConfiguration, err.Error(), nil)
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		var details any
		if providerErr := query.Get("error"); providerErr != "" {
			details = providerErr
		}
		writeError(w, http.StatusBadRequest, KindBadRequest, "Missing code", details)
		return
	}

	if h.verifyState() {
		if err := h.consumeState(r, query.Get("state")); err != nil {
			h.logger.Warn("rejected callback state", "error", err)
			writeFailure(w, err)
			return
		}
	}

	token, err := h.service.Exchange(ctx, code)
	if err != nil {
		var tokenErr *services.TokenError
		if errors.As(err, &tokenErr) {
			h.logger.Warn("token exchange rejected", "status", tokenErr.StatusCode, "detail", tokenErr.Detail())
			h.exchangeFailed(w, r, tokenErr.Detail())
			return
		}
		h.logger.Warn("token exchange unavailable", "error", err)
		writeError(w, http.StatusBadGateway, KindUpstreamUnavailable, "Token exchange network error: "+err.Error(), nil)
		return
	}
	if token.RefreshToken == "" {
		h.logger.Warn("token exchange returned no refresh token")
		h.exchangeFailed(w, r, "missing_refresh_token")
		return
	}

	user, err := h.service.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		var apiErr *services.APIError
		switch {
		case errors.As(err, &apiErr):
			h.logger.Warn("profile fetch rejected", "status", apiErr.StatusCode)
			writeError(w, http.StatusBadGateway, KindProfileFetch, "Failed to fetch user profile", apiErr.Body)
		case errors.Is(err, shared.ErrServiceUnavailable):
			h.logger.Warn("profile fetch unavailable", "error", err)
			writeError(w, http.StatusBadGateway, KindUpstreamUnavailable, "Failed to fetch user profile (network): "+err.Error(), nil)
		default:
			h.logger.Warn("profile fetch failed", "error", err)
			writeError(w, http.StatusBadGateway, KindProfileFetch, "Failed to fetch user profile", err.Error())
		}
		return
	}

	record := models.NewUserToken(user.ID, token.RefreshToken, services.Scope(token))
	if err := h.tokens.Save(ctx, record); err != nil {
		h.logger.Error("failed to save user token", "user", user.ID, "error", err)
		writeFailure(w, err)
		return
	}

	h.logger.Info("user connected", "user", user.ID)

	if h.frontend != "" {
		h.redirectFrontend(w, r, "spotifyUserId", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, ConnectedResponse{Message: "Connected", SpotifyUserID: user.ID})
}

// consumeState redeems a login nonce. It is deleted whether or not it has expired.
func (h *AuthHandler) consumeState(r *http.Request, state string) error {
	if state == "" {
		return fmt.Errorf("%w: missing state", shared.ErrInvalidState)
	}

	saved, err := h.states.Consume(r.Context(), state)
	if err != nil {
		if errors.Is(err, shared.ErrStateNotFound) {
			return fmt.Errorf("%w: unknown state", shared.ErrInvalidState)
		}
		return err
	}
	if saved.Expired(h.now()) {
		return fmt.Errorf("%w: state expired", shared.ErrInvalidState)
	}
	return nil
}

// exchangeFailed reports a rejected exchange by redirect when a frontend is configured, otherwise as JSON.
func (h *AuthHandler) exchangeFailed(w http.ResponseWriter, r *http.Request, detail string) {
	if h.frontend != "" {
		h.redirectFrontend(w, r, "auth_error", detail)
		return
	}
	writeError(w, http.StatusBadGateway, KindTokenExchange, "Token exchange failed", detail)
}

func (h *AuthHandler) redirectFrontend(w http.ResponseWriter, r *http.Request, key, value string) {
	target, err := frontendURL(h.frontend, key, value)
	if err != nil {
		h.logger.Error("invalid frontend base url", "error", err)
		writeError(w, http.StatusInternalServerError, KindConfiguration, "invalid frontend base url", nil)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
