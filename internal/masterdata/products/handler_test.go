package products

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

func newTestRouter(repo *memoryRepo) http.Handler {
	handler := NewHandler(nil, NewService(repo, nil, nil), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/products", handler.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, role shared.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 1, Role: role}))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerAuthorization(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)
	body := `{"name":"Desarrollo Web","sku":"WEB-001","price":"500000"}`

	rr := do(t, router, http.MethodGet, "/api/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/products", body, shared.RoleReadOnly)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/products", body, shared.RoleStandard)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, router, http.MethodDelete, "/api/products/1", "", shared.RoleStandard)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, http.MethodDelete, "/api/products/1", "", shared.RoleAdmin)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandlerValidationAndRules(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rr := do(t, router, http.MethodPost, "/api/products", `{"name":"","sku":"X","price":"-1"}`, shared.RoleAdmin)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, httpx.MsgInvalidData, problem.Detail)
	assert.Len(t, problem.Errors, 2)

	rr = do(t, router, http.MethodPost, "/api/products", `{"name":"A","sku":"SUP-001","price":"80000"}`, shared.RoleAdmin)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(t, router, http.MethodPost, "/api/products", `{"name":"B","sku":"SUP-001","price":"1"}`, shared.RoleAdmin)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "El SKU ya existe")

	repo.referenced[1] = true
	rr = do(t, router, http.MethodDelete, "/api/products/1", "", shared.RoleAdmin)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), httpx.CodeEntityInUse)

	rr = do(t, router, http.MethodGet, "/api/products/99", "", shared.RoleReadOnly)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Producto no encontrado")
}

func TestHandlerListPagination(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)
	for _, sku := range []string{"A-1", "A-2", "A-3"} {
		rr := do(t, router, http.MethodPost, "/api/products", `{"name":"P","sku":"`+sku+`","price":"10"}`, shared.RoleAdmin)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := do(t, router, http.MethodGet, "/api/products?page=1&limit=2", "", shared.RoleReadOnly)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Products   []Product         `json:"products"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, shared.Pagination{Page: 1, Limit: 2, Total: 3, Pages: 2}, body.Pagination)
}
