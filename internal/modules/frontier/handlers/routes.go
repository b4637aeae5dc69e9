package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all frontier routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/frontier", func(r chi.Router) {
		r.Get("/defaults", h.HandleGetDefaults)
		r.Post("/compute", h.HandleCompute)
		r.Post("/batch", h.HandleBatch)
	})
}
