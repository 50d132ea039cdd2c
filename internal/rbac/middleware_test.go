package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
)

type stubRoles map[int64]shared.Role

func (s stubRoles) CurrentRole(ctx context.Context, userID int64) (shared.Role, error) {
	role, ok := s[userID]
	if !ok {
		return "", httpx.ErrUnauthorized
	}
	return role, nil
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, actor *shared.Actor) (*httptest.ResponseRecorder, shared.Actor) {
	t.Helper()
	var seen shared.Actor
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), *actor))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, seen
}

func TestAnonymousIsUnauthorized(t *testing.T) {
	m := Middleware{}
	rr, _ := serve(t, m.RequireSession(), nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), httpx.MsgUnauthorized)
}

func TestRoleMatrix(t *testing.T) {
	m := Middleware{}
	cases := []struct {
		role   shared.Role
		mw     func(http.Handler) http.Handler
		status int
	}{
		{shared.RoleReadOnly, m.RequireSession(), http.StatusNoContent},
		{shared.RoleReadOnly, m.RequireWrite(), http.StatusUnauthorized},
		{shared.RoleStandard, m.RequireWrite(), http.StatusNoContent},
		{shared.RoleStandard, m.RequireAdmin(), http.StatusUnauthorized},
		{shared.RoleAdmin, m.RequireAdmin(), http.StatusNoContent},
	}
	for _, tc := range cases {
		rr, _ := serve(t, tc.mw, &shared.Actor{UserID: 1, Role: tc.role})
		assert.Equal(t, tc.status, rr.Code, "role %s", tc.role)
	}
}

func TestRoleRefreshedFromSource(t *testing.T) {
	m := Middleware{Service: stubRoles{1: shared.RoleReadOnly}}
	// The session still says ADMIN but the user was demoted.
	rr, _ := serve(t, m.RequireAdmin(), &shared.Actor{UserID: 1, Role: shared.RoleAdmin})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, seen := serve(t, m.RequireSession(), &shared.Actor{UserID: 1, Role: shared.RoleAdmin})
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, shared.RoleReadOnly, seen.Role)

	rr, _ = serve(t, m.RequireSession(), &shared.Actor{UserID: 2, Role: shared.RoleAdmin})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
