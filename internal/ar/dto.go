package ar

import (
	"github.com/shopspring/decimal"

	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
)

// CreateInvoiceRequest issues a standalone invoice.
type CreateInvoiceRequest struct {
	CustomerID int64                     `json:"customerId" validate:"required,gt=0"`
	DueDate    string                    `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Notes      string                    `json:"notes" validate:"max=2000"`
	Items      []salesshared.ItemPayload `json:"items" validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest edits the header of an invoice. Items and amounts are immutable.
type UpdateInvoiceRequest struct {
	DueDate *string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Notes   *string `json:"notes" validate:"omitempty,max=2000"`
}

// PaymentRequest records money received.
type PaymentRequest struct {
	Amount    *decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Method    PaymentMethod    `json:"method" validate:"required,oneof=TRANSFER CASH CARD CHECK OTHER"`
	Reference string           `json:"reference" validate:"max=100"`
	Notes     string           `json:"notes" validate:"max=500"`
}

// PaymentResult is the payment and the invoice state after it.
type PaymentResult struct {
	Payment *Payment `json:"payment"`
	Invoice *Invoice `json:"invoice"`
}
