package jobcards

import (
	"github.com/go-chi/chi/v5"

	"github.com/gearbox-ops/gearbox-ops/internal/rbac"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router, mw rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAny(shared.RoleAdmin, shared.RoleMechanic))
		r.Get("/jobs", h.List)
		r.Get("/jobs/{id}", h.Get)
		r.Post("/jobs", h.Create)
		r.Post("/jobs/{id}/status", h.Transition)
		r.Patch("/jobs/{id}/notes", h.UpdateNotes)
		r.Post("/jobs/{id}/services", h.AddService)
		r.Delete("/jobs/{id}/services/{lineID}", h.RemoveService)
		r.Post("/jobs/{id}/parts", h.AddPart)
		r.Delete("/jobs/{id}/parts/{lineID}", h.RemovePart)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdmin)
		r.Post("/jobs/{id}/mechanic", h.AssignMechanic)
		r.Post("/jobs/{id}/recompute", h.Recompute)
		r.Delete("/jobs/{id}", h.Delete)
	})
}
