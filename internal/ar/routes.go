package ar

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSession())
		r.Get("/", h.List)
		r.Get("/aging", h.Aging)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/payments", h.ListPayments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireWrite())
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/payments", h.ApplyPayment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Delete("/{id}", h.Delete)
	})
}
