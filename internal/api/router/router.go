package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	httpmiddleware "github.com/gracestack/church-comms-platform/internal/http/middleware"
	"github.com/gracestack/church-comms-platform/internal/messaging"
	"github.com/gracestack/church-comms-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	MessagingHandler *messaging.Handler
	MetricsHandler   http.Handler
	// DefaultTenantID, when set, is bound to every webhook request so tenant
	// attribution resolves without guesswork.
	DefaultTenantID uuid.UUID
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.MessagingHandler.HealthCheck)
		public.Route("/messaging", func(r chi.Router) {
			if cfg.DefaultTenantID != uuid.Nil {
				r.Use(httpmiddleware.BindTenant(cfg.DefaultTenantID))
			}
			r.Post("/sms/webhook", cfg.MessagingHandler.InboundSMS)
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	return r
}
