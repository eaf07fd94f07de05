// Package httpapi assembles the public router: inventory routes, the audit
// event query endpoint, health and Prometheus metrics.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auditkit/internal/platform/metrics"
	audit "auditkit/pkg/platform/audit"
	"auditkit/pkg/platform/httputil"
	"auditkit/pkg/platform/middleware/initiator"
	"auditkit/pkg/platform/middleware/requesttime"
	"auditkit/pkg/platform/sentinel"
)

const defaultEventLimit = 50

// EventReader is the query side of an audit event store.
type EventReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Event, error)
}

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Config carries the router's collaborators. Gatherer defaults to the
// Prometheus default registry.
type Config struct {
	Events   EventReader
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   func(ctx context.Context) error
}

func NewRouter(cfg Config, features ...Registrar) http.Handler {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(initiator.RequestID)
	r.Use(initiator.Initiator)
	r.Use(requesttime.Middleware)
	r.Use(observe(cfg.Metrics))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if cfg.Events != nil {
		r.Get("/audit/events", listEvents(cfg.Events))
	}
	for _, f := range features {
		f.Register(r)
	}
	return r
}

// listEvents serves GET /audit/events. With entity_type and entity_id it
// returns that entity's history; otherwise the most recent events.
func listEvents(events EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		entityType, entityID := q.Get("entity_type"), q.Get("entity_id")

		var (
			result []audit.Event
			err    error
		)
		switch {
		case entityType != "" && entityID != "":
			result, err = events.ListByEntity(r.Context(), entityType, entityID)
		case entityType != "" || entityID != "":
			httputil.WriteError(w, fmt.Errorf("%w: entity_type and entity_id must be given together", sentinel.ErrInvalidInput))
			return
		default:
			limit := defaultEventLimit
			if raw := q.Get("limit"); raw != "" {
				n, convErr := strconv.Atoi(raw)
				if convErr != nil || n <= 0 {
					httputil.WriteError(w, fmt.Errorf("%w: limit must be a positive integer", sentinel.ErrInvalidInput))
					return
				}
				limit = n
			}
			result, err = events.ListRecent(r.Context(), limit)
		}
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if result == nil {
			result = []audit.Event{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": result})
	}
}

func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.ObserveRequest(r.Method+" "+route, ww.Status())
		})
	}
}
