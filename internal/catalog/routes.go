package catalog

import (
	"github.com/go-chi/chi/v5"

	"github.com/gearbox-ops/gearbox-ops/internal/rbac"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAny(shared.RoleAdmin, shared.RoleMechanic))
		r.Get("/catalog/services", h.ListServiceItems)
		r.Get("/catalog/services/{id}", h.GetServiceItem)
		r.Get("/catalog/parts", h.ListParts)
		r.Get("/catalog/parts/{id}", h.GetPart)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdmin)
		r.Post("/catalog/services", h.CreateServiceItem)
		r.Patch("/catalog/services/{id}", h.UpdateServiceItem)
		r.Post("/catalog/parts", h.CreatePart)
		r.Patch("/catalog/parts/{id}", h.UpdatePart)
		r.Post("/catalog/parts/{id}/restock", h.RestockPart)
	})
}
