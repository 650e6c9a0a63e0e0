package customers

import (
	"github.com/go-chi/chi/v5"

	"github.com/gearbox-ops/gearbox-ops/internal/rbac"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAny(shared.RoleAdmin, shared.RoleMechanic))
		r.Get("/customers", h.List)
		r.Get("/customers/{id}", h.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdmin)
		r.Post("/customers", h.Create)
		r.Patch("/customers/{id}", h.Update)
	})
}
