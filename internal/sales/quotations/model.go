package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
)

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusSent     Status = "SENT"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusDraft: {StatusSent, StatusRejected},
	StatusSent:  {StatusAccepted, StatusRejected, StatusExpired},
}

// CanTransition reports whether a quote may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Open reports whether the quote can still be sent or accepted.
func (s Status) Open() bool {
	return s == StatusDraft || s == StatusSent
}

// Quote is a priced offer to a customer.
type Quote struct {
	ID           int64                      `json:"id"`
	Number       string                     `json:"number"`
	CustomerID   int64                      `json:"customerId"`
	CustomerName string                     `json:"customerName"`
	UserID       int64                      `json:"userId"`
	Items        []salesshared.DocumentLine `json:"items,omitempty"`
	Subtotal     decimal.Decimal            `json:"subtotal"`
	TaxRate      decimal.Decimal            `json:"taxRate"`
	Tax          decimal.Decimal            `json:"tax"`
	Total        decimal.Decimal            `json:"total"`
	Status       Status                     `json:"status"`
	ValidUntil   time.Time                  `json:"validUntil"`
	Notes        *string                    `json:"notes"`
	InvoiceID    *int64                     `json:"invoiceId"`
	CreatedAt    time.Time                  `json:"createdAt"`
	UpdatedAt    time.Time                  `json:"updatedAt"`
}

// EffectiveStatus reports DRAFT and SENT quotes past their validity as EXPIRED.
// A quote is valid through the whole validUntil day.
func (q Quote) EffectiveStatus(now time.Time) Status {
	if q.Status.Open() && salesshared.Today(now).After(q.ValidUntil) {
		return StatusExpired
	}
	return q.Status
}

// ListFilter narrows quote listings. Search matches the quote number and the
// customer name.
type ListFilter struct {
	httpx.PageParams
	Status     Status
	CustomerID *int64
	Today      time.Time
}
