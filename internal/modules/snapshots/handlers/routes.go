package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all snapshot routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", h.HandleHistory)
		r.Get("/current", h.HandleCurrent)
		r.Get("/latest", h.HandleLatest)
		r.Get("/stats", h.HandleStats)
		r.Post("/compute", h.HandleCompute)
		r.Get("/accounts/{accountID}", h.HandleAccountHistory)
		r.Get("/accounts/{accountID}/current", h.HandleAccountCurrent)
	})
}
