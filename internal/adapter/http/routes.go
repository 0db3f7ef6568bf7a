package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events", h.HandleIngestEvent)
		r.Get("/memory", h.HandleListMemory)
		r.Get("/memory/{type}", h.HandleGetMemory)
		r.Get("/errors", h.HandleListErrors)
		r.Get("/stats", h.HandleStats)
		r.Get("/records", h.HandleListRecords)
	})

	if h.Hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			h.Hub.HandleWS(w, r)
		})
	}
}
