// Package api is the HTTP surface of the outbound service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/outbound/internal/auth"
	"github.com/ignite/outbound/internal/metrics"
	"github.com/ignite/outbound/internal/tracking"
)

// RouterDeps collects what NewRouter mounts. Tracking may be nil when the
// pixel endpoint runs as its own service.
type RouterDeps struct {
	Handlers       *Handlers
	Health         *HealthChecker
	Auth           *auth.Authenticator
	Tracking       *tracking.Handler
	AllowedOrigins []string
}

// NewRouter builds the service router. Tracking and health are public; the
// delivery endpoints require a bearer token.
func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if d.Health != nil {
		r.Get("/health", d.Health.HandleHealth)
		r.Get("/health/live", d.Health.HandleLiveness)
		r.Get("/health/ready", d.Health.HandleReadiness)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if d.Tracking != nil {
		r.Get(tracking.Path, d.Tracking.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.RequireAuth)
		r.Post("/send-campaign", d.Handlers.HandleSendCampaign)
		r.Post("/trigger-webhook", d.Handlers.HandleTriggerWebhook)
		r.Post("/verify-domain", d.Handlers.HandleVerifyDomain)
	})

	return r
}
