// Package httpapi assembles the HTTP surface: the middleware chain, the
// versioned API routes, and the operational endpoints (health, readiness,
// metrics).
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"museion/internal/platform/metrics"
	"museion/internal/platform/middleware"
	"museion/pkg/platform/httputil"
)

// Registrar mounts a handler package's routes on a router group.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs. Nil Registrars are skipped so
// main can assemble only the contexts a deployment enables.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TokenValidator middleware.TokenValidator
	RequestTimeout time.Duration

	Registry Registrar
	Token    Registrar
	Market   Registrar
	Bank     Registrar
	Rewards  Registrar
	Events   Registrar

	// Checks maps a dependency name to its health probe for /readyz.
	Checks map[string]HealthChecker
}

// NewRouter builds the full HTTP handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(deps.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Recovery(deps.Logger))
		r.Use(middleware.Logger(deps.Logger))
		if deps.Metrics != nil {
			r.Use(middleware.Latency(deps.Metrics))
		}
		if deps.RequestTimeout > 0 {
			r.Use(middleware.Timeout(deps.RequestTimeout))
		}
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))

		for _, reg := range []Registrar{
			deps.Registry,
			deps.Token,
			deps.Market,
			deps.Bank,
			deps.Rewards,
			deps.Events,
		} {
			if reg != nil {
				reg.Register(r)
			}
		}
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings every configured dependency with a short deadline and
// reports per-dependency status. Any failure yields 503 so the load balancer
// stops routing here before requests start failing.
func handleReadyz(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": results,
		})
	}
}
