package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/appollohealth/clinic-voice-agent/internal/http/middleware"
	"github.com/appollohealth/clinic-voice-agent/internal/voice"
	"github.com/appollohealth/clinic-voice-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	VoiceHandler   *voice.Handler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.VoiceHandler.Health)

	// Twilio webhooks and the relay socket
	r.Route("/voice", func(r chi.Router) {
		r.Post("/", cfg.VoiceHandler.InboundCall)
		r.Post("/callback", cfg.VoiceHandler.StatusCallback)
		r.Get("/ws", cfg.VoiceHandler.HandleWebSocket)
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
