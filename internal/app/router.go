package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mipyme/backoffice/internal/analytics"
	"github.com/mipyme/backoffice/internal/ar"
	"github.com/mipyme/backoffice/internal/auth"
	"github.com/mipyme/backoffice/internal/expenses"
	"github.com/mipyme/backoffice/internal/masterdata/categories"
	"github.com/mipyme/backoffice/internal/masterdata/companies"
	"github.com/mipyme/backoffice/internal/masterdata/products"
	"github.com/mipyme/backoffice/internal/observability"
	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/rbac"
	"github.com/mipyme/backoffice/internal/sales/customers"
	"github.com/mipyme/backoffice/internal/sales/quotations"
	"github.com/mipyme/backoffice/internal/shared"
	"github.com/mipyme/backoffice/internal/users"
	"github.com/mipyme/backoffice/jobs"
)

// RouteMounter is implemented by every domain handler.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	// Routes maps a path prefix to the handler mounted under it.
	Routes map[string]RouteMounter
}

// Handlers builds the domain handlers over the wired services.
func Handlers(svc *Services, sessions *shared.SessionManager, csrf *shared.CSRFManager, inspector jobs.QueueInspector, logger *slog.Logger) map[string]RouteMounter {
	guard := rbac.Middleware{Service: svc.RBAC, Logger: logger}
	return map[string]RouteMounter{
		"/auth":       auth.NewHandler(logger, svc.Auth, sessions, csrf),
		"/users":      users.NewHandler(logger, svc.Users, guard),
		"/company":    companies.NewHandler(logger, svc.Companies, guard),
		"/categories": categories.NewHandler(logger, svc.Categories, guard),
		"/products":   products.NewHandler(logger, svc.Products, guard),
		"/customers":  customers.NewHandler(logger, svc.Customers, guard),
		"/quotes":     quotations.NewHandler(logger, svc.Quotes, guard),
		"/invoices":   ar.NewHandler(logger, svc.Invoices, guard),
		"/expenses":   expenses.NewHandler(logger, svc.Expenses, guard),
		"/dashboard":  analytics.NewHandler(logger, svc.Analytics, guard),
		"/jobs":       jobs.NewHandler(inspector, logger),
	}
}

// NewRouter constructs the chi.Router with the back office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	for prefix, handler := range params.Routes {
		if handler == nil {
			continue
		}
		r.Route(prefix, handler.MountRoutes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, httpx.NotFound("Recurso no encontrado"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "Método no permitido")
	})
	return r
}
