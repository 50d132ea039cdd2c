package ar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
)

var (
	ErrNotFound         = httpx.NotFound("Factura no encontrada")
	ErrPaymentNotFound  = httpx.NotFound("Pago no encontrado")
	ErrAlreadyInvoiced  = httpx.Rule(httpx.CodeAlreadyInvoiced, "La cotización ya fue facturada")
	ErrDuplicateRequest = httpx.Rule(httpx.CodeDuplicateRequest, "La solicitud ya fue procesada")
)

const (
	uniqueQuoteConstraint = "invoices_quote_id_key"
	idempotencyModule     = "ar.payment"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	NextNumber(ctx context.Context, year int) (string, error)
	LoadCustomer(ctx context.Context, id int64) (salesshared.CustomerRef, error)
	LoadProducts(ctx context.Context, ids []int64) (map[int64]salesshared.ProductRef, error)
	Insert(ctx context.Context, inv Invoice) (int64, error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	UpdateHeader(ctx context.Context, id int64, dueDate time.Time, notes *string, status InvoiceStatus) error
	SetPaid(ctx context.Context, id int64, paid decimal.Decimal, status InvoiceStatus) error
	SetStatus(ctx context.Context, id int64, status InvoiceStatus) error
	Cancel(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ClaimIdempotencyKey(ctx context.Context, key string) error
	InsertPayment(ctx context.Context, p Payment) (*Payment, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
	Receipt(ctx context.Context, paymentID int64) (*Receipt, error)
	OpenInvoices(ctx context.Context) ([]Invoice, error)
	Outstanding(ctx context.Context) ([]Outstanding, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn at ReadCommitted: writers serialize on the invoice row lock
// and the numbering counter row, then re-read committed data.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) NextNumber(ctx context.Context, year int) (string, error) {
	return shared.NextNumber(ctx, r.db, shared.DocumentInvoice, year)
}

func (r *repository) LoadCustomer(ctx context.Context, id int64) (salesshared.CustomerRef, error) {
	return salesshared.LoadCustomer(ctx, r.db, id)
}

func (r *repository) LoadProducts(ctx context.Context, ids []int64) (map[int64]salesshared.ProductRef, error) {
	return salesshared.LoadProducts(ctx, r.db, ids)
}

func (r *repository) Insert(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (number, customer_id, user_id, quote_id, subtotal, tax_rate, tax, total, paid, status, due_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)
		RETURNING id`,
		inv.Number, inv.CustomerID, inv.UserID, inv.QuoteID, inv.Subtotal, inv.TaxRate, inv.Tax, inv.Total,
		string(inv.Status), inv.DueDate, inv.Notes,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueQuoteConstraint) {
			return 0, ErrAlreadyInvoiced
		}
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	for _, item := range inv.Items {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5)`,
			id, item.ProductID, item.Quantity, item.UnitPrice, item.Total,
		); err != nil {
			return 0, fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return id, nil
}

const selectInvoice = `
	SELECT i.id, i.number, i.customer_id, c.name, c.email, i.user_id, i.quote_id,
	       i.subtotal, i.tax_rate, i.tax, i.total, i.paid, i.status, i.due_date, i.notes,
	       i.cancelled_at, i.created_at, i.updated_at
	FROM invoices i
	JOIN customers c ON c.id = i.customer_id`

// effectiveStatusSQL mirrors DeriveStatus for filtering.
const effectiveStatusSQL = `(CASE
		WHEN i.cancelled_at IS NOT NULL THEN 'CANCELLED'
		WHEN i.paid >= i.total THEN 'PAID'
		WHEN i.paid > 0 THEN 'PARTIAL'
		WHEN i.due_date < %s THEN 'OVERDUE'
		ELSE 'PENDING' END) = %s`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var (
		inv    Invoice
		status string
	)
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.CustomerEmail, &inv.UserID, &inv.QuoteID,
		&inv.Subtotal, &inv.TaxRate, &inv.Tax, &inv.Total, &inv.Paid, &status, &inv.DueDate, &inv.Notes,
		&inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Status = InvoiceStatus(status)
	inv.Balance = inv.Total.Sub(inv.Paid)
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	return r.get(ctx, selectInvoice+" WHERE i.id = $1", id)
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return r.get(ctx, selectInvoice+" WHERE i.id = $1 FOR UPDATE OF i", id)
}

func (r *repository) get(ctx context.Context, query string, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT ii.id, ii.product_id, p.name, ii.quantity, ii.unit_price, ii.total
		FROM invoice_items ii
		JOIN products p ON p.id = ii.product_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.id`, id)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item salesshared.DocumentLine
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var where db.Where
	if filter.Search != "" {
		where.Add("(i.number ILIKE %s OR c.name ILIKE %s)", db.ContainsPattern(filter.Search))
	}
	if filter.CustomerID != nil {
		where.Add("i.customer_id = %s", *filter.CustomerID)
	}
	if filter.Status != "" {
		where.AddArgs(effectiveStatusSQL, filter.Today, string(filter.Status))
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM invoices i JOIN customers c ON c.id = i.customer_id " + where.SQL()
	if err := r.db.QueryRow(ctx, countSQL, where.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	query := fmt.Sprintf("%s %s ORDER BY i.created_at DESC, i.id DESC LIMIT %s OFFSET %s",
		selectInvoice, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0, filter.Limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}

func (r *repository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, dueDate time.Time, notes *string, status InvoiceStatus) error {
	return r.exec(ctx, "update invoice",
		`UPDATE invoices SET due_date = $1, notes = $2, status = $3, updated_at = NOW() WHERE id = $4`,
		dueDate, notes, string(status), id)
}

func (r *repository) SetPaid(ctx context.Context, id int64, paid decimal.Decimal, status InvoiceStatus) error {
	return r.exec(ctx, "update invoice paid",
		`UPDATE invoices SET paid = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		paid, string(status), id)
}

func (r *repository) SetStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	return r.exec(ctx, "update invoice status",
		`UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
}

func (r *repository) Cancel(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, "cancel invoice",
		`UPDATE invoices SET status = 'CANCELLED', cancelled_at = $1, updated_at = NOW() WHERE id = $2`,
		at, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, "delete invoice", `DELETE FROM invoices WHERE id = $1`, id)
}

func (r *repository) ClaimIdempotencyKey(ctx context.Context, key string) error {
	err := shared.NewIdempotencyStore(r.db).Claim(ctx, idempotencyModule, key)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return ErrDuplicateRequest
	}
	return err
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, user_id, amount, method, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.InvoiceID, p.UserID, p.Amount, string(p.Method), p.Reference, p.Notes,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return &p, nil
}

func (r *repository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, user_id, amount, method, reference, notes, created_at
		FROM payments WHERE invoice_id = $1
		ORDER BY created_at, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		var (
			p      Payment
			method string
		)
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.UserID, &p.Amount, &method, &p.Reference, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Method = PaymentMethod(method)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *repository) Receipt(ctx context.Context, paymentID int64) (*Receipt, error) {
	var (
		rec    Receipt
		email  *string
		method string
	)
	err := r.db.QueryRow(ctx, `
		SELECT p.id, i.id, i.number, c.name, c.email, p.amount, p.method, p.reference,
		       i.total, i.paid, p.created_at
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		JOIN customers c ON c.id = i.customer_id
		WHERE p.id = $1`, paymentID,
	).Scan(&rec.PaymentID, &rec.InvoiceID, &rec.InvoiceNumber, &rec.CustomerName, &email, &rec.Amount, &method,
		&rec.Reference, &rec.Total, &rec.Paid, &rec.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load receipt: %w", err)
	}
	if email != nil {
		rec.CustomerEmail = *email
	}
	rec.Method = PaymentMethod(method)
	rec.Balance = rec.Total.Sub(rec.Paid)
	return &rec, nil
}

func (r *repository) OpenInvoices(ctx context.Context) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, selectInvoice+` WHERE i.cancelled_at IS NULL AND i.paid < i.total ORDER BY i.id`)
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *repository) Outstanding(ctx context.Context) ([]Outstanding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, due_date, total - paid
		FROM invoices
		WHERE cancelled_at IS NULL AND paid < total`)
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}
	defer rows.Close()

	var out []Outstanding
	for rows.Next() {
		var o Outstanding
		if err := rows.Scan(&o.InvoiceID, &o.DueDate, &o.Balance); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
