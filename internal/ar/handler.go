package ar

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/rbac"
	"github.com/mipyme/backoffice/internal/shared"
)

// IdempotencyHeader carries the client key that deduplicates payment submissions.
const IdempotencyHeader = shared.IdempotencyHeader

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{PageParams: httpx.ParsePage(r)}
	if status := InvoiceStatus(strings.ToUpper(r.URL.Query().Get("status"))); status != "" {
		if !status.Valid() {
			httpx.RespondError(w, httpx.Invalid("status", "estado desconocido"))
			return
		}
		filter.Status = status
	}
	customerID, err := httpx.QueryInt64(r, "customerId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.CustomerID = customerID

	invoices, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	inv, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateInvoiceRequest
	if err := decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	inv, err := h.service.Cancel(r.Context(), id, actor)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Factura eliminada correctamente"})
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req PaymentRequest
	if err := decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	result, err := h.service.ApplyPayment(r.Context(), id, req, r.Header.Get(IdempotencyHeader), actor)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if d, err := httpx.QueryDate(r, "asOf"); err != nil {
		httpx.RespondError(w, err)
		return
	} else if d != nil {
		asOf = *d
	}
	aging, err := h.service.Aging(r.Context(), asOf)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, aging)
}

func decode[T any](r *http.Request, req *T) error {
	if err := httpx.DecodeJSON(r, req); err != nil {
		return err
	}
	return httpx.Validate(*req)
}
