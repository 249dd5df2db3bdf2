package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatepass/internal/platform/metrics"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/platform/middleware/metadata"
	request "gatepass/pkg/platform/middleware/request"
	"gatepass/pkg/platform/middleware/requesttime"
)

// routeRegistrar is implemented by every feature handler.
type routeRegistrar interface {
	Register(r chi.Router)
}

type routerDeps struct {
	logger         *slog.Logger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
	requireAdmin   func(http.Handler) http.Handler
	health         map[string]healthCheck
	// public routes manage their own guards.
	public []routeRegistrar
	admin  []routeRegistrar
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(deps.logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(deps.logger))
	r.Use(request.Latency(deps.metrics))

	r.Get("/healthz", healthHandler(deps.health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(deps.requestTimeout))
		r.Use(request.ContentTypeJSON)
		for _, h := range deps.public {
			h.Register(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(deps.requestTimeout))
		r.Use(request.ContentTypeJSON)
		r.Use(deps.requireAdmin)
		for _, h := range deps.admin {
			h.Register(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
