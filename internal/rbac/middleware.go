// Package rbac wires role checks for HTTP handlers. The actor is resolved by
// the outer middleware stack; handlers only declare the roles they accept.
package rbac

import (
	"net/http"

	"log/slog"

	"github.com/gearbox-ops/gearbox-ops/internal/shared"
)

// Middleware gates routes on the actor's role.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAdmin ensures the current actor carries the admin role.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAny(shared.RoleAdmin)(next)
}

// RequireAny ensures the current actor holds one of the given roles.
func (m Middleware) RequireAny(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if !actor.Role.Valid() {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Warn("role denied", slog.String("role", string(actor.Role)), slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
