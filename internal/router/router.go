package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"neuropulse/internal/handlers"
	"neuropulse/internal/metrics"
	"neuropulse/internal/middleware"
	"neuropulse/internal/websocket"
)

// New builds the HTTP surface. A nil jwtAuth leaves the API open, which is
// the default for a single-device deployment.
func New(
	jwtAuth *middleware.JWTAuth,
	ingestLimiter *middleware.RateLimiter,
	monitorHandler *handlers.MonitorHandler,
	sessionHandler *handlers.SessionHandler,
	eventsHandler *handlers.EventsHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// The websocket authenticates through its own query param.
		r.Get("/ws", wsHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(jwtAuth.Middleware)
			}

			// ──── Monitor Routes ────
			r.Route("/monitor", func(r chi.Router) {
				r.Post("/start", monitorHandler.Start)
				r.Post("/stop", monitorHandler.Stop)
				r.Get("/status", monitorHandler.Status)
			})

			r.Get("/sessions", sessionHandler.List)

			// ──── Observer Ingest Routes ────
			r.Group(func(r chi.Router) {
				if ingestLimiter != nil {
					r.Use(ingestLimiter.Middleware)
				}
				r.Post("/events/unlock", eventsHandler.Unlock)
				r.Post("/events/notification", eventsHandler.Notification)
				r.Post("/usage", eventsHandler.Usage)
			})
		})
	})

	return r
}
