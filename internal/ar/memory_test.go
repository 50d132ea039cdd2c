package ar

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
)

type memoryRepo struct {
	invoices  map[int64]*Invoice
	payments  []Payment
	keys      map[string]bool
	customers map[int64]salesshared.CustomerRef
	products  map[int64]salesshared.ProductRef
	seq       map[int]int
	nextID    int64
	nextPayID int64
	clock     func() time.Time
}

func newMemoryRepo(clock func() time.Time) *memoryRepo {
	return &memoryRepo{
		invoices:  map[int64]*Invoice{},
		keys:      map[string]bool{},
		customers: map[int64]salesshared.CustomerRef{},
		products:  map[int64]salesshared.ProductRef{},
		seq:       map[int]int{},
		clock:     clock,
	}
}

// WithTx runs fn against a copy and commits it only on success.
func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	tx := m.clone()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	*m = *tx
	return nil
}

func (m *memoryRepo) clone() *memoryRepo {
	out := &memoryRepo{
		invoices:  make(map[int64]*Invoice, len(m.invoices)),
		payments:  append([]Payment(nil), m.payments...),
		keys:      make(map[string]bool, len(m.keys)),
		customers: m.customers,
		products:  m.products,
		seq:       make(map[int]int, len(m.seq)),
		nextID:    m.nextID,
		nextPayID: m.nextPayID,
		clock:     m.clock,
	}
	for id, inv := range m.invoices {
		cp := *inv
		out.invoices[id] = &cp
	}
	for k := range m.keys {
		out.keys[k] = true
	}
	for y, n := range m.seq {
		out.seq[y] = n
	}
	return out
}

func (m *memoryRepo) NextNumber(ctx context.Context, year int) (string, error) {
	m.seq[year]++
	return shared.FormatNumber(shared.DocumentInvoice, year, m.seq[year])
}

func (m *memoryRepo) LoadCustomer(ctx context.Context, id int64) (salesshared.CustomerRef, error) {
	c, ok := m.customers[id]
	if !ok {
		return salesshared.CustomerRef{}, salesshared.ErrCustomerNotFound
	}
	return c, nil
}

func (m *memoryRepo) LoadProducts(ctx context.Context, ids []int64) (map[int64]salesshared.ProductRef, error) {
	out := map[int64]salesshared.ProductRef{}
	for _, id := range ids {
		p, ok := m.products[id]
		if !ok {
			return nil, salesshared.ErrProductNotFound
		}
		out[id] = p
	}
	return out, nil
}

func (m *memoryRepo) Insert(ctx context.Context, inv Invoice) (int64, error) {
	if inv.QuoteID != nil {
		for _, existing := range m.invoices {
			if existing.QuoteID != nil && *existing.QuoteID == *inv.QuoteID {
				return 0, ErrAlreadyInvoiced
			}
		}
	}
	m.nextID++
	inv.ID = m.nextID
	customer := m.customers[inv.CustomerID]
	inv.CustomerName = customer.Name
	inv.CustomerEmail = customer.Email
	inv.CreatedAt = m.clock()
	inv.UpdatedAt = inv.CreatedAt
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	out := make([]Invoice, 0)
	for _, inv := range m.invoices {
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != "" && DeriveStatus(inv.Paid, inv.Total, inv.DueDate, filter.Today, inv.Cancelled()) != filter.Status {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) UpdateHeader(ctx context.Context, id int64, dueDate time.Time, notes *string, status InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.DueDate = dueDate
	inv.Notes = notes
	inv.Status = status
	return nil
}

func (m *memoryRepo) SetPaid(ctx context.Context, id int64, paid decimal.Decimal, status InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Paid = paid
	inv.Status = status
	return nil
}

func (m *memoryRepo) SetStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *memoryRepo) Cancel(ctx context.Context, id int64, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.CancelledAt = &at
	inv.Status = StatusCancelled
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.invoices, id)
	kept := m.payments[:0]
	for _, p := range m.payments {
		if p.InvoiceID != id {
			kept = append(kept, p)
		}
	}
	m.payments = kept
	return nil
}

func (m *memoryRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if m.keys[key] {
		return ErrDuplicateRequest
	}
	m.keys[key] = true
	return nil
}

func (m *memoryRepo) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	m.nextPayID++
	p.ID = m.nextPayID
	p.CreatedAt = m.clock()
	m.payments = append(m.payments, p)
	return &p, nil
}

func (m *memoryRepo) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	out := make([]Payment, 0)
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) Receipt(ctx context.Context, paymentID int64) (*Receipt, error) {
	for _, p := range m.payments {
		if p.ID != paymentID {
			continue
		}
		inv := m.invoices[p.InvoiceID]
		out := &Receipt{
			PaymentID:     p.ID,
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			CustomerName:  inv.CustomerName,
			Amount:        p.Amount,
			Method:        p.Method,
			Reference:     p.Reference,
			Total:         inv.Total,
			Paid:          inv.Paid,
			Balance:       inv.Total.Sub(inv.Paid),
			PaidAt:        p.CreatedAt,
		}
		if inv.CustomerEmail != nil {
			out.CustomerEmail = *inv.CustomerEmail
		}
		return out, nil
	}
	return nil, ErrPaymentNotFound
}

func (m *memoryRepo) OpenInvoices(ctx context.Context) ([]Invoice, error) {
	out := make([]Invoice, 0)
	for _, inv := range m.invoices {
		if inv.Cancelled() || inv.Paid.GreaterThanOrEqual(inv.Total) {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) Outstanding(ctx context.Context) ([]Outstanding, error) {
	out := make([]Outstanding, 0)
	for _, inv := range m.invoices {
		if inv.Cancelled() {
			continue
		}
		if balance := inv.Total.Sub(inv.Paid); balance.IsPositive() {
			out = append(out, Outstanding{InvoiceID: inv.ID, DueDate: inv.DueDate, Balance: balance})
		}
	}
	return out, nil
}
