package quotations

import salesshared "github.com/mipyme/backoffice/internal/sales/shared"

// CreateQuoteRequest opens a DRAFT quote. Omitted unit prices take the
// product's current catalog price.
type CreateQuoteRequest struct {
	CustomerID int64                     `json:"customerId" validate:"required,gt=0"`
	ValidUntil string                    `json:"validUntil" validate:"omitempty,datetime=2006-01-02"`
	Notes      string                    `json:"notes" validate:"max=2000"`
	Items      []salesshared.ItemPayload `json:"items" validate:"required,min=1,dive"`
}

// UpdateQuoteRequest edits the header of an open quote. Items are immutable.
type UpdateQuoteRequest struct {
	ValidUntil *string `json:"validUntil" validate:"omitempty,datetime=2006-01-02"`
	Notes      *string `json:"notes" validate:"omitempty,max=2000"`
}

// StatusRequest moves a quote through its lifecycle.
type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=SENT ACCEPTED REJECTED EXPIRED"`
}

// ConvertRequest turns an accepted quote into an invoice.
type ConvertRequest struct {
	DueDate string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Notes   string `json:"notes" validate:"max=2000"`
}
