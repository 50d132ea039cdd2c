package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/ar"
)

const recentInvoiceLimit = 10

// Counts are the master data totals shown on the dashboard.
type Counts struct {
	Customers int `json:"customers"`
	Products  int `json:"products"`
	Quotes    int `json:"quotes"`
}

// RecentInvoice is one row of the latest invoices list.
type RecentInvoice struct {
	ID           int64            `json:"id"`
	Number       string           `json:"number"`
	CustomerName string           `json:"customerName"`
	Total        decimal.Decimal  `json:"total"`
	Paid         decimal.Decimal  `json:"paid"`
	Status       ar.InvoiceStatus `json:"status"`
	DueDate      time.Time        `json:"dueDate"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Summary is the dashboard payload.
type Summary struct {
	Counts          Counts          `json:"counts"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	PendingInvoices decimal.Decimal `json:"pendingInvoices"`
	MonthExpenses   decimal.Decimal `json:"monthExpenses"`
	RecentInvoices  []RecentInvoice `json:"recentInvoices"`
	Aging           ar.Aging        `json:"aging"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

// invoiceRow carries what the status derivation needs.
type invoiceRow struct {
	RecentInvoice
	Cancelled bool
}

func monthBounds(today time.Time) (time.Time, time.Time) {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
