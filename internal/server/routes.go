package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotbridge/internal/models"
	"github.com/desertthunder/spotbridge/internal/services"
	"github.com/desertthunder/spotbridge/internal/shared"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options holds the dependencies of the HTTP surface.
type Options struct {
	Config  *shared.Config
	Service services.Service
	Tokens  models.TokenStore
	States  models.StateStore
	DB      Pinger
	Logger  *log.Logger
}

// HealthHandler reports liveness of the server and its database.
type HealthHandler struct {
	db Pinger
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []Route {
	return []Route{{Pattern: "GET /healthz", Handler: h.Health}}
}

// Health pings the database when one is configured.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, KindUnavailable, "database unreachable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// New assembles the router: middleware stack, authorization flow, proxy gateway and health check.
func New(opts Options) (*BasicRouter, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: server config is required", shared.ErrMissingConfig)
	}
	if opts.Service == nil || opts.Tokens == nil {
		return nil, fmt.Errorf("%w: service and token store are required", shared.ErrMissingArgument)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	cfg := opts.Config.Server
	router := NewBasicRouter()
	router.Use(RequestLogger(opts.Logger), CORS(cfg.AllowOrigin()), Recover(opts.Logger))
	if cfg.RateLimit > 0 {
		router.Use(RateLimit(NewRateLimiter(cfg.RateLimit, cfg.RateBurst), cfg.Prefix()))
	}

	router.Handler(NewAuthHandler(opts.Config, opts.Service, opts.Tokens, opts.States, opts.Logger))
	router.Handler(NewProxyHandler(cfg.Prefix(), opts.Service, opts.Tokens, opts.Logger))
	router.Handler(&HealthHandler{db: opts.DB})
	router.Handle("", "/", http.HandlerFunc(NotFound))

	return router, nil
}
