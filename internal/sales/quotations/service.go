package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/observability"
	"github.com/mipyme/backoffice/internal/platform/httpx"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
)

var (
	ErrInvalidTransition = httpx.Rule(httpx.CodeInvalidTransition, "Transición de estado no permitida")
	ErrLocked            = httpx.Rule(httpx.CodeDocumentLocked, "Solo se pueden editar cotizaciones en borrador o enviadas")
	ErrNotAccepted       = httpx.Rule(httpx.CodeInvalidTransition, "Solo se pueden facturar cotizaciones aceptadas")
	ErrAlreadyInvoiced   = httpx.Rule(httpx.CodeAlreadyInvoiced, "La cotización ya fue facturada")
	ErrNotDeletable      = httpx.Rule(httpx.CodeDocumentLocked, "Solo se pueden eliminar cotizaciones en borrador, rechazadas o vencidas sin factura")
	ErrPastValidity      = httpx.Invalid("validUntil", "no puede ser anterior a hoy")
)

// TaxRateSource provides the fractional tax rate applied to new documents.
type TaxRateSource interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// InvoiceCreator issues the invoice for an accepted quote. Implementations
// must refuse a second invoice for the same quote.
type InvoiceCreator interface {
	CreateFromQuote(ctx context.Context, src salesshared.QuoteConversion) (salesshared.IssuedDocument, error)
}

// Options configures the quote service.
type Options struct {
	DefaultValidDays int
	Invoices         InvoiceCreator
	Audit            shared.AuditRecorder
	Cache            shared.CacheBumper
	Metrics          *observability.BillingMetrics
	Logger           *slog.Logger
	Now              func() time.Time
}

type Service struct {
	repo      Repository
	rates     TaxRateSource
	invoices  InvoiceCreator
	audit     shared.AuditRecorder
	cache     shared.CacheBumper
	metrics   *observability.BillingMetrics
	logger    *slog.Logger
	now       func() time.Time
	validDays int
}

func NewService(repo Repository, rates TaxRateSource, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultValidDays <= 0 {
		opts.DefaultValidDays = 30
	}
	return &Service{
		repo:      repo,
		rates:     rates,
		invoices:  opts.Invoices,
		audit:     opts.Audit,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
		validDays: opts.DefaultValidDays,
	}
}

// Create prices and numbers a new DRAFT quote in one transaction.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, actor shared.Actor) (*Quote, error) {
	now := s.now()
	today := salesshared.Today(now)
	validUntil := today.AddDate(0, 0, s.validDays)
	if parsed, err := httpx.ParseDate("validUntil", req.ValidUntil); err != nil {
		return nil, err
	} else if parsed != nil {
		if parsed.Before(today) {
			return nil, ErrPastValidity
		}
		validUntil = *parsed
	}
	rate, err := s.rates.TaxRate(ctx)
	if err != nil {
		return nil, err
	}

	items := salesshared.Items(req.Items)
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.LoadCustomer(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		products, err := repo.LoadProducts(ctx, salesshared.ProductIDs(items))
		if err != nil {
			return err
		}
		lines, err := salesshared.ResolveLines(customer, products, items)
		if err != nil {
			return err
		}
		totals, err := salesshared.CalculateTotals(lines, rate)
		if err != nil {
			return err
		}
		number, err := repo.NextNumber(ctx, now.Year())
		if err != nil {
			return err
		}
		id, err = repo.Insert(ctx, Quote{
			Number:     number,
			CustomerID: customer.ID,
			UserID:     actor.UserID,
			Items:      salesshared.BuildLines(totals, products),
			Subtotal:   totals.Subtotal,
			TaxRate:    rate,
			Tax:        totals.Tax,
			Total:      totals.Total,
			Status:     StatusDraft,
			ValidUntil: validUntil,
			Notes:      optional(req.Notes),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentNumbered(string(shared.DocumentQuote))
	shared.BumpCache(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Get returns the quote with its effective status.
func (s *Service) Get(ctx context.Context, id int64) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Status = q.EffectiveStatus(s.now())
	return q, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Quote, int, error) {
	now := s.now()
	filter.Today = salesshared.Today(now)
	quotes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range quotes {
		quotes[i].Status = quotes[i].EffectiveStatus(now)
	}
	return quotes, total, nil
}

// Update edits validUntil and notes of a DRAFT or SENT quote.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuoteRequest) (*Quote, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// Extending an expired-by-date quote reopens it, so only the stored status is checked.
		if !q.Status.Open() {
			return ErrLocked
		}
		validUntil, notes := q.ValidUntil, q.Notes
		if req.ValidUntil != nil {
			parsed, err := httpx.ParseDate("validUntil", *req.ValidUntil)
			if err != nil {
				return err
			}
			if parsed != nil {
				if parsed.Before(salesshared.Today(s.now())) {
					return ErrPastValidity
				}
				validUntil = *parsed
			}
		}
		if req.Notes != nil {
			notes = optional(*req.Notes)
		}
		return repo.UpdateHeader(ctx, id, validUntil, notes)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ChangeStatus applies a lifecycle transition checked against the effective status.
func (s *Service) ChangeStatus(ctx context.Context, id int64, to Status, actor shared.Actor) (*Quote, error) {
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = q.EffectiveStatus(s.now())
		if !CanTransition(from, to) {
			return ErrInvalidTransition
		}
		return repo.UpdateStatus(ctx, id, to)
	})
	if err != nil {
		return nil, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditStatusChange,
		Entity:   "quote",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"from": string(from), "to": string(to)},
	})
	return s.Get(ctx, id)
}

// Convert issues the invoice of an ACCEPTED quote. Only one invoice per quote
// is allowed; a unique index on invoices.quote_id settles concurrent requests.
func (s *Service) Convert(ctx context.Context, id int64, req ConvertRequest, actor shared.Actor) (salesshared.IssuedDocument, error) {
	if s.invoices == nil {
		return salesshared.IssuedDocument{}, errors.New("quotations: invoice creator not configured")
	}
	dueDate, err := httpx.ParseDate("dueDate", req.DueDate)
	if err != nil {
		return salesshared.IssuedDocument{}, err
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return salesshared.IssuedDocument{}, err
	}
	if q.InvoiceID != nil {
		return salesshared.IssuedDocument{}, ErrAlreadyInvoiced
	}
	if q.Status != StatusAccepted {
		return salesshared.IssuedDocument{}, ErrNotAccepted
	}

	items := make([]salesshared.ItemRequest, 0, len(q.Items))
	for _, line := range q.Items {
		price := line.UnitPrice
		items = append(items, salesshared.ItemRequest{ProductID: line.ProductID, Quantity: line.Quantity, UnitPrice: &price})
	}
	notes := optional(req.Notes)
	if notes == nil {
		n := fmt.Sprintf("Factura generada desde cotización %s", q.Number)
		notes = &n
	}
	issued, err := s.invoices.CreateFromQuote(ctx, salesshared.QuoteConversion{
		QuoteID:     q.ID,
		QuoteNumber: q.Number,
		CustomerID:  q.CustomerID,
		UserID:      actor.UserID,
		TaxRate:     q.TaxRate,
		Items:       items,
		DueDate:     dueDate,
		Notes:       notes,
	})
	if err != nil {
		return salesshared.IssuedDocument{}, err
	}
	s.logger.Info("quote converted", slog.String("quote", q.Number), slog.String("invoice", issued.Number))
	return issued, nil
}

// Delete removes DRAFT, REJECTED or EXPIRED quotes that were never invoiced.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		number = q.Number
		switch q.EffectiveStatus(s.now()) {
		case StatusDraft, StatusRejected, StatusExpired:
		default:
			return ErrNotDeletable
		}
		if q.InvoiceID != nil {
			return ErrNotDeletable
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditDelete,
		Entity:   "quote",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"number": number},
	})
	shared.BumpCache(ctx, s.cache, s.logger)
	return nil
}

// ExpireOverdue persists EXPIRED on open quotes whose validity has passed.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx, salesshared.Today(now))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("quotes expired", slog.Int64("count", n))
	}
	return n, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
