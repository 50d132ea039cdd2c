package ar

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
	ErrLocked         = httpx.Rule(httpx.CodeDocumentLocked, "No se puede modificar una factura anulada")
	ErrCancelWithPaid = httpx.Rule(httpx.CodeInvalidTransition, "No se puede anular una factura con pagos registrados")
	ErrDueBeforeIssue = httpx.Invalid("dueDate", "no puede ser anterior a la fecha de emisión")
)

// TaxRateSource provides the fractional tax rate applied to new documents.
type TaxRateSource interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// ReceiptNotifier schedules the confirmation of a recorded payment.
type ReceiptNotifier interface {
	EnqueuePaymentReceipt(ctx context.Context, paymentID int64) error
}

// Options configures the invoice service.
type Options struct {
	DefaultDueDays    int
	RejectOverpayment bool
	Notifier          ReceiptNotifier
	Audit             shared.AuditRecorder
	Cache             shared.CacheBumper
	Metrics           *observability.BillingMetrics
	Logger            *slog.Logger
	Now               func() time.Time
}

type Service struct {
	repo              Repository
	rates             TaxRateSource
	notifier          ReceiptNotifier
	audit             shared.AuditRecorder
	cache             shared.CacheBumper
	metrics           *observability.BillingMetrics
	logger            *slog.Logger
	now               func() time.Time
	dueDays           int
	rejectOverpayment bool
}

func NewService(repo Repository, rates TaxRateSource, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultDueDays <= 0 {
		opts.DefaultDueDays = 30
	}
	return &Service{
		repo:              repo,
		rates:             rates,
		notifier:          opts.Notifier,
		audit:             opts.Audit,
		cache:             opts.Cache,
		metrics:           opts.Metrics,
		logger:            opts.Logger,
		now:               opts.Now,
		dueDays:           opts.DefaultDueDays,
		rejectOverpayment: opts.RejectOverpayment,
	}
}

// draft is the input shared by direct creation and quote conversion.
type draft struct {
	customerID int64
	userID     int64
	quoteID    *int64
	rate       decimal.Decimal
	items      []salesshared.ItemRequest
	dueDate    *time.Time
	notes      *string
}

// Create prices and numbers a new invoice in one transaction.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, actor shared.Actor) (*Invoice, error) {
	dueDate, err := httpx.ParseDate("dueDate", req.DueDate)
	if err != nil {
		return nil, err
	}
	rate, err := s.rates.TaxRate(ctx)
	if err != nil {
		return nil, err
	}
	id, _, err := s.create(ctx, draft{
		customerID: req.CustomerID,
		userID:     actor.UserID,
		rate:       rate,
		items:      salesshared.Items(req.Items),
		dueDate:    dueDate,
		notes:      optional(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// CreateFromQuote issues the invoice of an accepted quote at the quoted prices and rate.
func (s *Service) CreateFromQuote(ctx context.Context, src salesshared.QuoteConversion) (salesshared.IssuedDocument, error) {
	quoteID := src.QuoteID
	id, number, err := s.create(ctx, draft{
		customerID: src.CustomerID,
		userID:     src.UserID,
		quoteID:    &quoteID,
		rate:       src.TaxRate,
		items:      src.Items,
		dueDate:    src.DueDate,
		notes:      src.Notes,
	})
	if err != nil {
		return salesshared.IssuedDocument{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  src.UserID,
		Action:   shared.AuditCreate,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"number": number, "quote": src.QuoteNumber},
	})
	return salesshared.IssuedDocument{ID: id, Number: number}, nil
}

func (s *Service) create(ctx context.Context, d draft) (int64, string, error) {
	now := s.now()
	today := salesshared.Today(now)
	due := today.AddDate(0, 0, s.dueDays)
	if d.dueDate != nil {
		if d.dueDate.Before(today) {
			return 0, "", ErrDueBeforeIssue
		}
		due = *d.dueDate
	}

	var (
		id     int64
		number string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.LoadCustomer(ctx, d.customerID)
		if err != nil {
			return err
		}
		products, err := repo.LoadProducts(ctx, salesshared.ProductIDs(d.items))
		if err != nil {
			return err
		}
		lines, err := salesshared.ResolveLines(customer, products, d.items)
		if err != nil {
			return err
		}
		totals, err := salesshared.CalculateTotals(lines, d.rate)
		if err != nil {
			return err
		}
		number, err = repo.NextNumber(ctx, now.Year())
		if err != nil {
			return err
		}
		id, err = repo.Insert(ctx, Invoice{
			Number:     number,
			CustomerID: customer.ID,
			UserID:     d.userID,
			QuoteID:    d.quoteID,
			Items:      salesshared.BuildLines(totals, products),
			Subtotal:   totals.Subtotal,
			TaxRate:    d.rate,
			Tax:        totals.Tax,
			Total:      totals.Total,
			Paid:       decimal.Zero,
			Status:     DeriveStatus(decimal.Zero, totals.Total, due, now, false),
			DueDate:    due,
			Notes:      d.notes,
		})
		return err
	})
	if err != nil {
		return 0, "", err
	}
	s.metrics.DocumentNumbered(string(shared.DocumentInvoice))
	shared.BumpCache(ctx, s.cache, s.logger)
	return id, number, nil
}

// Get returns the invoice with its effective status.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Refresh(s.now())
	return inv, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	now := s.now()
	filter.Today = salesshared.Today(now)
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range invoices {
		invoices[i].Refresh(now)
	}
	return invoices, total, nil
}

// Update edits dueDate and notes and recomputes the status.
func (s *Service) Update(ctx context.Context, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Cancelled() {
			return ErrLocked
		}
		if req.DueDate != nil {
			due, err := httpx.ParseDate("dueDate", *req.DueDate)
			if err != nil {
				return err
			}
			if due != nil {
				if due.Before(salesshared.Today(inv.CreatedAt)) {
					return ErrDueBeforeIssue
				}
				inv.DueDate = *due
			}
		}
		if req.Notes != nil {
			inv.Notes = optional(*req.Notes)
		}
		inv.Refresh(s.now())
		return repo.UpdateHeader(ctx, id, inv.DueDate, inv.Notes, inv.Status)
	})
	if err != nil {
		return nil, err
	}
	shared.BumpCache(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Cancel voids an invoice without payments. CANCELLED is final.
func (s *Service) Cancel(ctx context.Context, id int64, actor shared.Actor) (*Invoice, error) {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		number = inv.Number
		if inv.Cancelled() {
			return ErrLocked
		}
		if inv.Paid.IsPositive() {
			return ErrCancelWithPaid
		}
		return repo.Cancel(ctx, id, s.now())
	})
	if err != nil {
		return nil, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditStatusChange,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"number": number, "to": string(StatusCancelled)},
	})
	shared.BumpCache(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete removes an invoice together with its items and payments.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditDelete,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"number": inv.Number, "paid": inv.Paid.String()},
	})
	shared.BumpCache(ctx, s.cache, s.logger)
	return nil
}

// RefreshStatuses persists the derived status of open invoices, mainly moving
// PENDING invoices to OVERDUE. Each invoice is locked and re-read before its
// status is written, so payments and cancellations committed after the scan
// win. It returns how many invoices changed.
func (s *Service) RefreshStatuses(ctx context.Context, now time.Time) (int64, error) {
	open, err := s.repo.OpenInvoices(ctx)
	if err != nil {
		return 0, err
	}
	var changed int64
	for _, candidate := range open {
		if DeriveStatus(candidate.Paid, candidate.Total, candidate.DueDate, now, candidate.Cancelled()) == candidate.Status {
			continue
		}
		var updated bool
		err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			inv, err := repo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			status := DeriveStatus(inv.Paid, inv.Total, inv.DueDate, now, inv.Cancelled())
			if status == inv.Status {
				return nil
			}
			updated = true
			return repo.SetStatus(ctx, inv.ID, status)
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return changed, fmt.Errorf("refresh invoice %s: %w", candidate.Number, err)
		}
		if updated {
			changed++
		}
	}
	if changed > 0 {
		shared.BumpCache(ctx, s.cache, s.logger)
	}
	return changed, nil
}

// Aging buckets outstanding balances as of asOf, or today when asOf is zero.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (Aging, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	items, err := s.repo.Outstanding(ctx)
	if err != nil {
		return Aging{}, err
	}
	return BucketAging(items, asOf), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
