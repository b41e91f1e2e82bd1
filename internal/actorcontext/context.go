package actorcontext

import (
	"context"
	"strings"
)

// Roles known to the upstream identity service. Cost and profit figures are
// visible to managers only.
const (
	RoleStaff   = "staff"
	RoleManager = "manager"
)

// Actor is the authenticated identity performing a request. Authentication
// itself happens upstream; the service only consumes the resolved id and
// role.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) Known() bool {
	return strings.TrimSpace(a.ID) != ""
}

func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}

// IDRef returns the actor id as a nullable reference for persistence, nil
// when the actor is unknown.
func (a Actor) IDRef() *string {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return nil
	}
	return &id
}

type contextKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}

func ValidRole(role string) bool {
	switch role {
	case RoleStaff, RoleManager:
		return true
	default:
		return false
	}
}
