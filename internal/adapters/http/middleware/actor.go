package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jsamuelsen11/trackflow/internal/domain"
	"github.com/jsamuelsen11/trackflow/internal/platform/httpclient"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

type actorKey struct{}

// WithActor returns a new context carrying the acting user. The actor ID is
// also stored via httpclient.WithActorID for outbound calls.
func WithActor(ctx context.Context, a domain.Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey{}, a)
	if a.ID != "" {
		ctx = httpclient.WithActorID(ctx, a.ID)
	}
	return ctx
}

// ActorFromContext returns the actor stored by the Actor middleware. A
// context without one yields an anonymous viewer.
func ActorFromContext(ctx context.Context) domain.Actor {
	if a, ok := ctx.Value(actorKey{}).(domain.Actor); ok {
		return a
	}
	return domain.Actor{Role: domain.RoleViewer}
}

// Actor returns middleware that reads the caller's identity from the
// X-Actor-ID and X-Actor-Role headers set by the identity proxy in front of
// the service. A missing or unrecognised role is treated as viewer, so the
// system role can never be asserted from outside.
func Actor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := domain.Actor{
				ID:   strings.TrimSpace(r.Header.Get(headerActorID)),
				Role: domain.ParseRole(r.Header.Get(headerActorRole)),
			}
			if !a.Role.IsValid() {
				a.Role = domain.RoleViewer
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
		})
	}
}
