package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// CategoryRef is the category embedded in product responses.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a sellable catalog item.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       int64           `json:"stock"`
	Status      string          `json:"status"`
	CategoryID  *int64          `json:"categoryId"`
	Category    *CategoryRef    `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	httpx.PageParams
	CategoryID *int64
	Status     string
}
