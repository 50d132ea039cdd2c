package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mipyme/backoffice/internal/auth"
	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
	"github.com/mipyme/backoffice/internal/testkit"
)

type stubRepo struct {
	users map[string]*auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

// client replays the session cookie between requests.
type client struct {
	t       *testing.T
	router  http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, repo auth.Repository) *client {
	t.Helper()
	_, redisClient := testkit.Redis(t)
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessions, csrf)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(r.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, r.WithContext(ctx))
			require.NoError(t, sessions.Commit(ctx, w, r, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Route("/api/auth", handler.MountRoutes)
	return &client{t: t, router: r}
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	if set := rr.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rr
}

func newRepo(t *testing.T) *stubRepo {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{users: map[string]*auth.User{
		"admin@empresa.com": {ID: 1, Name: "Administrador", Email: "admin@empresa.com", PasswordHash: string(hashed), Role: shared.RoleAdmin, IsActive: true},
		"ex@empresa.com":    {ID: 2, Name: "Ex", Email: "ex@empresa.com", PasswordHash: string(hashed), Role: shared.RoleStandard},
	}}
}

func TestLoginInvalidCredentials(t *testing.T) {
	c := newClient(t, newRepo(t))
	for _, body := range []string{
		`{"email":"admin@empresa.com","password":"wrongpass"}`,
		`{"email":"nobody@empresa.com","password":"admin123"}`,
		`{"email":"ex@empresa.com","password":"admin123"}`,
	} {
		rr := c.do(http.MethodPost, "/api/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, rr.Code, body)
		assert.Contains(t, rr.Body.String(), httpx.MsgUnauthorized)
	}

	rr := c.do(http.MethodPost, "/api/auth/login", `{"email":"not-an-email","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginMeLogout(t *testing.T) {
	c := newClient(t, newRepo(t))

	rr := c.do(http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = c.do(http.MethodGet, "/api/auth/csrf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, c.cookies)
	anonymousID := c.cookies[0].Value

	rr = c.do(http.MethodPost, "/api/auth/login", `{"email":"ADMIN@empresa.com","password":"admin123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var login auth.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
	assert.Equal(t, shared.RoleAdmin, login.User.Role)
	assert.NotEmpty(t, login.CSRFToken)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotEqual(t, anonymousID, c.cookies[0].Value, "session id rotates on sign in")

	rr = c.do(http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var me auth.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "Administrador", me.User.Name)
	assert.Equal(t, login.CSRFToken, me.CSRFToken)

	rr = c.do(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = c.do(http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
