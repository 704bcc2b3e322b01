// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/webchat"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Chat               *handlers.ChatHandler
	Scheduling         *handlers.SchedulingHandler
	Webchat            *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// ChatRateLimit caps conversational turns per second per IP; zero
	// disables the limiter.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/chat", func(chat chi.Router) {
		if cfg.ChatRateLimit > 0 {
			chat.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
		}
		chat.Post("/message", cfg.Chat.Message)
	})

	r.Route("/scheduling", func(s chi.Router) {
		s.Get("/doctors", cfg.Scheduling.Doctors)
		s.Get("/availability", cfg.Scheduling.Availability)
		s.Post("/bookings", cfg.Scheduling.Book)
		s.Patch("/bookings/{token}/cancel", cfg.Scheduling.Cancel)
	})

	if cfg.Webchat != nil {
		r.Route("/webchat", func(wc chi.Router) {
			wc.Get("/ws", cfg.Webchat.HandleWebSocket)
			wc.Post("/message", cfg.Webchat.HandleMessage)
			wc.Get("/history", cfg.Webchat.HandleHistory)
			wc.Get("/widget.js", cfg.Webchat.HandleWidgetJS)
		})
	}

	return r
}
