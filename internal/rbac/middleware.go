package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
)

// RoleSource resolves the current role of a user so role changes and
// deactivations apply to live sessions.
type RoleSource interface {
	CurrentRole(ctx context.Context, userID int64) (shared.Role, error)
}

// Middleware wires authorization helpers for HTTP handlers. Every denial is
// reported as 401 with the same message so callers cannot probe roles.
type Middleware struct {
	Service RoleSource
	Logger  *slog.Logger
}

// RequireSession admits any signed in user.
func (m Middleware) RequireSession() func(http.Handler) http.Handler {
	return m.require(func(shared.Role) bool { return true })
}

// RequireWrite admits ADMIN and STANDARD users.
func (m Middleware) RequireWrite() func(http.Handler) http.Handler {
	return m.require(shared.Role.CanWrite)
}

// RequireAdmin admits ADMIN users only.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.require(shared.Role.CanDelete)
}

func (m Middleware) require(allowed func(shared.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if m.Service != nil {
				role, err := m.Service.CurrentRole(r.Context(), actor.UserID)
				if err != nil {
					if httpx.StatusOf(err) != http.StatusUnauthorized && m.Logger != nil {
						m.Logger.Error("rbac resolve role", slog.Int64("user_id", actor.UserID), slog.Any("error", err))
					}
					httpx.RespondError(w, err)
					return
				}
				actor.Role = role
			}
			if !allowed(actor.Role) {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}
