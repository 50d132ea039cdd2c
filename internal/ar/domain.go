package ar

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
)

// InvoiceStatus is derived from the paid amount, the total and the due date.
// CANCELLED is the only manual status.
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "PENDING"
	StatusPartial   InvoiceStatus = "PARTIAL"
	StatusPaid      InvoiceStatus = "PAID"
	StatusOverdue   InvoiceStatus = "OVERDUE"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how a payment was received.
type PaymentMethod string

const (
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodCheck    PaymentMethod = "CHECK"
	MethodOther    PaymentMethod = "OTHER"
)

var (
	ErrOverpayment      = httpx.Rule(httpx.CodeOverpayment, "El pago excede el saldo pendiente de la factura")
	ErrInvalidAmount    = httpx.Rule(httpx.CodeInvalidPayment, "El monto debe ser mayor a cero y tener como máximo dos decimales")
	ErrInvoiceCancelled = httpx.Rule(httpx.CodeInvalidPayment, "No se pueden registrar pagos en una factura anulada")
	ErrInvoicePaid      = httpx.Rule(httpx.CodeInvalidPayment, "La factura ya está pagada")
)

// Invoice is a numbered receivable.
type Invoice struct {
	ID            int64                      `json:"id"`
	Number        string                     `json:"number"`
	CustomerID    int64                      `json:"customerId"`
	CustomerName  string                     `json:"customerName"`
	CustomerEmail *string                    `json:"-"`
	UserID        int64                      `json:"userId"`
	QuoteID       *int64                     `json:"quoteId"`
	Items         []salesshared.DocumentLine `json:"items,omitempty"`
	Subtotal      decimal.Decimal            `json:"subtotal"`
	TaxRate       decimal.Decimal            `json:"taxRate"`
	Tax           decimal.Decimal            `json:"tax"`
	Total         decimal.Decimal            `json:"total"`
	Paid          decimal.Decimal            `json:"paid"`
	Balance       decimal.Decimal            `json:"balance"`
	Status        InvoiceStatus              `json:"status"`
	DueDate       time.Time                  `json:"dueDate"`
	Notes         *string                    `json:"notes"`
	CancelledAt   *time.Time                 `json:"cancelledAt"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

// Cancelled reports whether the invoice was cancelled.
func (inv Invoice) Cancelled() bool {
	return inv.CancelledAt != nil
}

// Refresh sets the derived balance and status as of now.
func (inv *Invoice) Refresh(now time.Time) {
	inv.Balance = inv.Total.Sub(inv.Paid)
	inv.Status = DeriveStatus(inv.Paid, inv.Total, inv.DueDate, now, inv.Cancelled())
}

// Payment is money received against an invoice.
type Payment struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoiceId"`
	UserID    int64           `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Reference *string         `json:"reference"`
	Notes     *string         `json:"notes"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DeriveStatus computes the invoice status. Precedence: CANCELLED, PAID,
// PARTIAL, OVERDUE, PENDING. A partially paid invoice past its due date stays
// PARTIAL; aging still reports its balance as overdue. The invoice is due
// through the whole due date.
func DeriveStatus(paid, total decimal.Decimal, due, now time.Time, cancelled bool) InvoiceStatus {
	switch {
	case cancelled:
		return StatusCancelled
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	case salesshared.Today(now).After(due):
		return StatusOverdue
	default:
		return StatusPending
	}
}

// PaymentOutcome is the invoice state after a payment.
type PaymentOutcome struct {
	Paid   decimal.Decimal
	Status InvoiceStatus
}

// ApplyPayment validates amount against the invoice and returns the new paid
// amount and status. With rejectOverpayment, paid may never exceed total.
func ApplyPayment(inv Invoice, amount decimal.Decimal, now time.Time, rejectOverpayment bool) (PaymentOutcome, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(salesshared.MoneyPlaces)) {
		return PaymentOutcome{}, ErrInvalidAmount
	}
	if inv.Cancelled() {
		return PaymentOutcome{}, ErrInvoiceCancelled
	}
	if inv.Paid.GreaterThanOrEqual(inv.Total) {
		return PaymentOutcome{}, ErrInvoicePaid
	}
	paid := inv.Paid.Add(amount)
	if rejectOverpayment && paid.GreaterThan(inv.Total) {
		return PaymentOutcome{}, ErrOverpayment
	}
	return PaymentOutcome{Paid: paid, Status: DeriveStatus(paid, inv.Total, inv.DueDate, now, false)}, nil
}

// Outstanding is the unpaid part of an open invoice.
type Outstanding struct {
	InvoiceID int64
	DueDate   time.Time
	Balance   decimal.Decimal
}

// Aging groups outstanding balances by days past due.
type Aging struct {
	AsOf       time.Time       `json:"asOf"`
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"days1To30"`
	Days31To60 decimal.Decimal `json:"days31To60"`
	Days61To90 decimal.Decimal `json:"days61To90"`
	Over90     decimal.Decimal `json:"over90"`
	Total      decimal.Decimal `json:"total"`
}

// BucketAging sorts balances into aging buckets as of asOf.
func BucketAging(items []Outstanding, asOf time.Time) Aging {
	today := salesshared.Today(asOf)
	out := Aging{
		AsOf:       today,
		Current:    decimal.Zero,
		Days1To30:  decimal.Zero,
		Days31To60: decimal.Zero,
		Days61To90: decimal.Zero,
		Over90:     decimal.Zero,
		Total:      decimal.Zero,
	}
	for _, item := range items {
		if !item.Balance.IsPositive() {
			continue
		}
		days := int(today.Sub(salesshared.Today(item.DueDate)).Hours() / 24)
		switch {
		case days <= 0:
			out.Current = out.Current.Add(item.Balance)
		case days <= 30:
			out.Days1To30 = out.Days1To30.Add(item.Balance)
		case days <= 60:
			out.Days31To60 = out.Days31To60.Add(item.Balance)
		case days <= 90:
			out.Days61To90 = out.Days61To90.Add(item.Balance)
		default:
			out.Over90 = out.Over90.Add(item.Balance)
		}
		out.Total = out.Total.Add(item.Balance)
	}
	return out
}

// Receipt is what a payment confirmation reports.
type Receipt struct {
	PaymentID     int64           `json:"paymentId"`
	InvoiceID     int64           `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	Reference     *string         `json:"reference"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Balance       decimal.Decimal `json:"balance"`
	PaidAt        time.Time       `json:"paidAt"`
}

// ListFilter narrows invoice listings. Status filters on the effective status.
type ListFilter struct {
	httpx.PageParams
	Status     InvoiceStatus
	CustomerID *int64
	Today      time.Time
}
