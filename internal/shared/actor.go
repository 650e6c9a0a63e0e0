package shared

import "context"

// Role enumerates the workflow roles recognised by the core.
type Role string

const (
	// RoleAdmin may perform any forward transition, billing and deletion.
	RoleAdmin Role = "admin"
	// RoleMechanic may only step a job forward one state at a time.
	RoleMechanic Role = "mechanic"
)

// Valid reports whether the role is one of the known literals.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMechanic
}

// IsAdmin reports whether the role carries administrative privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Actor identifies who invoked an operation. The outer layer resolves it
// (headers, session, CLI flag); the core only consumes it.
type Actor struct {
	ID   int64
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is
// returned when none was set.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
