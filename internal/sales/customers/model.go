package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// Customer is a billed party.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	TaxID     *string   `json:"taxId"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DocumentSummary is a quote or invoice listed on the customer detail.
type DocumentSummary struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Detail is a customer with its most recent documents.
type Detail struct {
	Customer
	Quotes   []DocumentSummary `json:"quotes"`
	Invoices []DocumentSummary `json:"invoices"`
}

// ListFilter narrows customer listings.
type ListFilter struct {
	httpx.PageParams
	Status string
}

const recentDocuments = 5
