package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	UserID int64
	Role   Role
}

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor resolved by the auth middleware. When the
// middleware did not run it falls back to the session contents.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if actor, ok := ctx.Value(actorContextKey{}).(Actor); ok {
		return actor, true
	}
	sess := SessionFromContext(ctx)
	if !sess.Authenticated() {
		return Actor{}, false
	}
	return Actor{UserID: sess.UserID(), Role: sess.Role()}, true
}
