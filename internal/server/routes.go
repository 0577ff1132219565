package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Session routes
	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)

			// Session operations
			r.Post("/submit", s.submitQuery)
			r.Post("/cancel", s.cancelSession)
			r.Post("/regenerate", s.regenerateResponse)
		})
	})

	// Profile routes
	r.Route("/profile", func(r chi.Router) {
		r.Get("/", s.listProfiles)

		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getProfile)
			r.Put("/", s.putProfile)
			r.Delete("/", s.deleteProfile)
		})
	})

	// Event streaming (SSE)
	r.Get("/event", s.events)

	// Health check
	r.Get("/health", s.health)
}
