package billing

import (
	"github.com/go-chi/chi/v5"

	"github.com/gearbox-ops/gearbox-ops/internal/rbac"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAny(shared.RoleAdmin, shared.RoleMechanic))
		r.Get("/invoices", h.List)
		r.Get("/invoices/{id}", h.Get)
		r.Get("/invoices/{id}/view", h.View)
		r.Get("/jobs/{jobID}/invoice/eligibility", h.Eligibility)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdmin)
		r.Post("/jobs/{jobID}/invoice", h.Generate)
	})
}
