// Package httpapi is the HTTP layer: routing, middleware and handlers.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"milstock.org/internal/auth"
	"milstock.org/internal/inventory"
	"milstock.org/internal/obs"
	"milstock.org/internal/stream"
)

// ReadyProbe reports whether the backing store is reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API wires handlers onto a ServeMux. When tokens is nil the service runs in
// open mode: no verification, no role gates, one shared code path.
type API struct {
	mux        *http.ServeMux
	tokens     *auth.Tokens
	accounts   *auth.Service
	inv        inventory.Store
	stream     *stream.Stream
	readyProbe ReadyProbe
	version    string

	corsOrigins []string
	rateBurst   int
	ratePerSec  int
}

// Option configures the API.
type Option func(*API)

// WithTokens enables bearer-token authentication.
func WithTokens(tokens *auth.Tokens) Option {
	return func(a *API) { a.tokens = tokens }
}

// WithCORSOrigins sets the allowed origins; "*" allows any.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) {
		if len(origins) > 0 {
			a.corsOrigins = origins
		}
	}
}

// WithRateLimit overrides the per-IP limiter (mainly for tests).
func WithRateLimit(burst, perSec int) Option {
	return func(a *API) {
		if burst > 0 && perSec > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSec
		}
	}
}

// WithReadyProbe attaches a store readiness check.
func WithReadyProbe(rp ReadyProbe) Option {
	return func(a *API) { a.readyProbe = rp }
}

// New constructs the API over the given credential service and inventory
// store.
func New(accounts *auth.Service, inv inventory.Store, events *stream.Stream, version string, opts ...Option) *API {
	a := &API{
		mux:         http.NewServeMux(),
		accounts:    accounts,
		inv:         inv,
		stream:      events,
		version:     version,
		corsOrigins: []string{"*"},
		rateBurst:   50,
		ratePerSec:  25,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReadyz)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)

	a.mux.HandleFunc("/api/assets", a.handleAssetsCollection)
	a.mux.HandleFunc("/api/assets/", a.handleAssetsSubtree)

	a.mux.HandleFunc("/", a.handleRoot)

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) authEnabled() bool {
	return a.tokens != nil
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("milstock asset inventory api " + a.version + "\n"))
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "milstock-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
