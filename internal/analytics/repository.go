package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/ar"
	"github.com/mipyme/backoffice/internal/platform/db"
)

// Repository reads the aggregates behind the dashboard.
type Repository interface {
	Counts(ctx context.Context) (Counts, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	Pending(ctx context.Context) (decimal.Decimal, error)
	RecentInvoices(ctx context.Context, limit int) ([]invoiceRow, error)
	Outstanding(ctx context.Context) ([]ar.Outstanding, error)
	ExpensesBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM customers),
		       (SELECT COUNT(*) FROM products),
		       (SELECT COUNT(*) FROM quotes)`).Scan(&c.Customers, &c.Products, &c.Quotes)
	if err != nil {
		return Counts{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return c, nil
}

// Revenue sums the totals of fully paid invoices.
func (r *repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0) FROM invoices
		WHERE cancelled_at IS NULL AND paid >= total`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dashboard revenue: %w", err)
	}
	return total, nil
}

// Pending sums the unpaid balance of open invoices.
func (r *repository) Pending(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total - paid), 0) FROM invoices
		WHERE cancelled_at IS NULL AND paid < total`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dashboard pending: %w", err)
	}
	return total, nil
}

func (r *repository) RecentInvoices(ctx context.Context, limit int) ([]invoiceRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.number, c.name, i.total, i.paid, i.due_date, i.created_at, i.cancelled_at IS NOT NULL
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard recent invoices: %w", err)
	}
	defer rows.Close()

	out := make([]invoiceRow, 0, limit)
	for rows.Next() {
		var row invoiceRow
		if err := rows.Scan(&row.ID, &row.Number, &row.CustomerName, &row.Total, &row.Paid, &row.DueDate, &row.CreatedAt, &row.Cancelled); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) Outstanding(ctx context.Context) ([]ar.Outstanding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, due_date, total - paid FROM invoices
		WHERE cancelled_at IS NULL AND paid < total`)
	if err != nil {
		return nil, fmt.Errorf("dashboard outstanding: %w", err)
	}
	defer rows.Close()

	var out []ar.Outstanding
	for rows.Next() {
		var o ar.Outstanding
		if err := rows.Scan(&o.InvoiceID, &o.DueDate, &o.Balance); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) ExpensesBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE date BETWEEN $1 AND $2`, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dashboard expenses: %w", err)
	}
	return total, nil
}
