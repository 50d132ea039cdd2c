package ar

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mipyme/backoffice/internal/observability"
	"github.com/mipyme/backoffice/internal/shared"
)

// ApplyPayment records a payment. The invoice row is locked for the whole
// transaction so concurrent payments on one invoice apply one after another
// and each sees the paid amount committed by the previous one.
func (s *Service) ApplyPayment(ctx context.Context, invoiceID int64, req PaymentRequest, idempotencyKey string, actor shared.Actor) (*PaymentResult, error) {
	var (
		payment *Payment
		notify  bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if key := strings.TrimSpace(idempotencyKey); key != "" {
			if err := repo.ClaimIdempotencyKey(ctx, key); err != nil {
				return err
			}
		}
		inv, err := repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		outcome, err := ApplyPayment(*inv, *req.Amount, s.now(), s.rejectOverpayment)
		if err != nil {
			return err
		}
		payment, err = repo.InsertPayment(ctx, Payment{
			InvoiceID: invoiceID,
			UserID:    actor.UserID,
			Amount:    *req.Amount,
			Method:    req.Method,
			Reference: optional(req.Reference),
			Notes:     optional(req.Notes),
		})
		if err != nil {
			return err
		}
		if err := repo.SetPaid(ctx, invoiceID, outcome.Paid, outcome.Status); err != nil {
			return err
		}
		notify = inv.CustomerEmail != nil && *inv.CustomerEmail != ""
		return nil
	})
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			s.metrics.PaymentRejected(reason)
		}
		return nil, err
	}
	s.metrics.PaymentApplied()

	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   shared.AuditPayment,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
		Meta:     map[string]any{"payment_id": payment.ID, "amount": payment.Amount.String(), "method": string(payment.Method)},
	})
	shared.BumpCache(ctx, s.cache, s.logger)
	if notify && s.notifier != nil {
		if err := s.notifier.EnqueuePaymentReceipt(ctx, payment.ID); err != nil {
			s.logger.Warn("enqueue payment receipt", slog.Int64("payment_id", payment.ID), slog.Any("error", err))
		}
	}

	inv, err := s.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: payment, Invoice: inv}, nil
}

// ListPayments returns the payments of an invoice, oldest first.
func (s *Service) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	if _, err := s.repo.Get(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, invoiceID)
}

// Receipt loads the confirmation data of a payment.
func (s *Service) Receipt(ctx context.Context, paymentID int64) (*Receipt, error) {
	return s.repo.Receipt(ctx, paymentID)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrOverpayment):
		return observability.RejectOverpayment
	case errors.Is(err, ErrInvoiceCancelled), errors.Is(err, ErrInvoicePaid):
		return observability.RejectCancelled
	case errors.Is(err, ErrInvalidAmount):
		return observability.RejectInvalid
	case errors.Is(err, ErrDuplicateRequest):
		return observability.RejectDuplicate
	default:
		return ""
	}
}
