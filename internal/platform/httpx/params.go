package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pagination bounds for list endpoints.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ParseID reads a positive int64 URL parameter.
func ParseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, Invalid(name, "identificador inválido")
	}
	return id, nil
}

// PageParams holds list query parameters shared by every list endpoint.
type PageParams struct {
	Page   int
	Limit  int
	Search string
}

// Offset returns the row offset for the page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads page, limit and search. Out of range values fall back to defaults.
func ParsePage(r *http.Request) PageParams {
	q := r.URL.Query()
	params := PageParams{Page: DefaultPage, Limit: DefaultLimit, Search: strings.TrimSpace(q.Get("search"))}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		params.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		if v > MaxLimit {
			v = MaxLimit
		}
		params.Limit = v
	}
	return params
}

// QueryInt64 parses an optional positive int64 query parameter.
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, Invalid(name, "debe ser un identificador numérico")
	}
	return &v, nil
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses an optional YYYY-MM-DD value into a UTC midnight. Empty input yields nil.
func ParseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return nil, Invalid(field, "debe tener el formato AAAA-MM-DD")
	}
	return &t, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	return ParseDate(name, r.URL.Query().Get(name))
}
