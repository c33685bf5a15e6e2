package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all cash flow routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/payins", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Delete("/{id}", h.HandleDelete)
	})
}
