package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idcard/internal/platform/metrics"
	"idcard/internal/platform/middleware"
	"idcard/pkg/platform/httputil"
	"idcard/pkg/platform/middleware/metadata"
	"idcard/pkg/platform/middleware/requesttime"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries what NewRouter wires.
type RouterConfig struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
	Timeout  time.Duration
}

// NewRouter wires the shared middleware stack, liveness and metrics, then
// mounts every registrar.
func NewRouter(cfg RouterConfig, registrars ...Registrar) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", healthz(cfg.Checks))
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.Timeout))
		for _, reg := range registrars {
			reg.Register(r)
		}
	})
	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": report,
		})
	}
}
