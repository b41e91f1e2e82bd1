package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/toko/internal/actorcontext"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

// ActorMiddleware resolves the acting user from the headers the upstream
// identity proxy injects and threads it through the request context.
// Requests without an actor are rejected before any handler runs.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerActorID))
		role := strings.TrimSpace(c.GetHeader(headerActorRole))
		if id == "" || !actorcontext.ValidRole(role) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actorcontext.Actor{
			ID:   id,
			Role: role,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole guards a route group to one role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.FromContext(c.Request.Context())
		if !ok || actor.Role != role {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}
