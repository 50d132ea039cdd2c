package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentLine is a stored quote or invoice line.
type DocumentLine struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// ItemPayload is the JSON shape of a requested line.
type ItemPayload struct {
	ProductID int64            `json:"productId" validate:"required,gt=0"`
	Quantity  int64            `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unitPrice" validate:"omitempty,gte=0"`
}

// Items converts payload lines into item requests.
func Items(payload []ItemPayload) []ItemRequest {
	out := make([]ItemRequest, 0, len(payload))
	for _, p := range payload {
		out = append(out, ItemRequest{ProductID: p.ProductID, Quantity: p.Quantity, UnitPrice: p.UnitPrice})
	}
	return out
}

// BuildLines turns priced totals into storable lines, naming each product.
func BuildLines(totals Totals, products map[int64]ProductRef) []DocumentLine {
	lines := make([]DocumentLine, 0, len(totals.Lines))
	for _, l := range totals.Lines {
		lines = append(lines, DocumentLine{
			ProductID:   l.ProductID,
			ProductName: products[l.ProductID].Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		})
	}
	return lines
}

// QuoteConversion carries an accepted quote into invoice creation. Lines keep
// the quoted prices and the invoice keeps the quoted tax rate.
type QuoteConversion struct {
	QuoteID     int64
	QuoteNumber string
	CustomerID  int64
	UserID      int64
	TaxRate     decimal.Decimal
	Items       []ItemRequest
	DueDate     *time.Time
	Notes       *string
}

// IssuedDocument identifies a newly numbered document.
type IssuedDocument struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
}

// Today truncates t to its UTC calendar date.
func Today(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
