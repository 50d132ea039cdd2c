package quotations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/rbac"
	"github.com/mipyme/backoffice/internal/shared"
)

func serve(t *testing.T, svc *Service, method, path, body string, role shared.Role) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api/quotes", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 9, Role: role}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateValidationReportsItemPaths(t *testing.T) {
	svc, _, _ := newFixture(t)
	rr := serve(t, svc, http.MethodPost, "/api/quotes",
		`{"customerId":1,"items":[{"productId":10,"quantity":0}]}`, shared.RoleStandard)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "items[0].quantity", problem.Errors[0].Field)

	rr = serve(t, svc, http.MethodPost, "/api/quotes", `{"customerId":1,"items":[]}`, shared.RoleStandard)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusEndpointFlow(t *testing.T) {
	svc, _, _ := newFixture(t)
	rr := serve(t, svc, http.MethodPost, "/api/quotes",
		`{"customerId":1,"items":[{"productId":10,"quantity":2},{"productId":11,"quantity":1}]}`, shared.RoleStandard)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "952000", created.Total.String())

	rr = serve(t, svc, http.MethodPost, "/api/quotes/1/status", `{"status":"ACCEPTED"}`, shared.RoleStandard)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), httpx.CodeInvalidTransition)

	rr = serve(t, svc, http.MethodPost, "/api/quotes/1/status", `{"status":"SENT"}`, shared.RoleReadOnly)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, svc, http.MethodPost, "/api/quotes/1/status", `{"status":"SENT"}`, shared.RoleStandard)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = serve(t, svc, http.MethodPost, "/api/quotes/1/status", `{"status":"ACCEPTED"}`, shared.RoleStandard)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, svc, http.MethodPost, "/api/quotes/1/convert", "", shared.RoleStandard)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"number":"FACT-2024-001"`)

	rr = serve(t, svc, http.MethodGet, "/api/quotes?status=bogus", "", shared.RoleReadOnly)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
