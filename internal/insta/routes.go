package insta

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/webhook/instagram", h.Verify)
	r.Post("/webhook/instagram", h.HandleWebhook)
}
