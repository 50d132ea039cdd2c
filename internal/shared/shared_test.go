package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mipyme/backoffice/internal/testkit"
)

func TestFormatNumber(t *testing.T) {
	n, err := FormatNumber(DocumentQuote, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, "COT-2024-001", n)

	n, err = FormatNumber(DocumentInvoice, 2025, 999)
	require.NoError(t, err)
	assert.Equal(t, "FACT-2025-999", n)

	_, err = FormatNumber(DocumentInvoice, 2025, 1000)
	require.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleAdmin.CanDelete())
	assert.False(t, RoleStandard.CanDelete())
	assert.True(t, RoleStandard.CanWrite())
	assert.False(t, RoleReadOnly.CanWrite())
	assert.False(t, Role("ROOT").Valid())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 21)
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 21, Pages: 3}, p)
	assert.Equal(t, 0, NewPagination(1, 10, 0).Pages)
}

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	_, client := testkit.Redis(t)
	return NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionSignInRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SignIn(7, RoleStandard)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loaded.UserID())
	assert.Equal(t, RoleStandard, loaded.Role())

	actor, ok := ActorFromContext(ContextWithSession(ctx, loaded))
	require.True(t, ok)
	assert.Equal(t, Actor{UserID: 7, Role: RoleStandard}, actor)
}

func TestSessionUnknownCookieIsNotAdopted(t *testing.T) {
	sm := newTestSessionManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "attacker-chosen"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestSessionForgedSignatureIsIgnored(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SignIn(1, RoleAdmin)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	cookie := rr.Result().Cookies()[0]

	id, _, _ := strings.Cut(cookie.Value, ".")
	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: id + ".AAAA"})
	loaded, err := sm.Load(ctx, forged)
	require.NoError(t, err)
	assert.False(t, loaded.Authenticated())
}

func TestSessionSignInDropsPreviousRecord(t *testing.T) {
	mr, client := testkit.Redis(t)
	sm := NewSessionManager(client, "s", "secret", time.Hour, false)
	csrf := NewCSRFManager("csrf")
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	anon, err := sm.Load(ctx, req)
	require.NoError(t, err)
	anonToken, err := csrf.EnsureToken(ctx, anon)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, anon))
	anonID := anon.ID
	require.True(t, mr.Exists("backoffice:session:"+anonID))

	next := httptest.NewRequest(http.MethodPost, "/", nil)
	next.AddCookie(rr.Result().Cookies()[0])
	sess, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.NoError(t, csrf.VerifyToken(ctx, sess, anonToken))
	sess.SignIn(3, RoleReadOnly)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, anonToken), ErrCSRFTokenMissing)
	fresh, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), next, sess))

	assert.False(t, mr.Exists("backoffice:session:"+anonID))
	assert.True(t, mr.Exists("backoffice:session:"+sess.ID))
	assert.NotEqual(t, anonToken, fresh)
}

func TestCSRFVerify(t *testing.T) {
	sm := newTestSessionManager(t)
	csrf := NewCSRFManager("csrf")
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	require.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "bad"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
}
