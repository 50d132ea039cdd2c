package quotations

import (
	"context"
	"fmt"
	"sort"
	"time"

	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
)

type memoryRepo struct {
	quotes    map[int64]*Quote
	customers map[int64]salesshared.CustomerRef
	products  map[int64]salesshared.ProductRef
	seq       map[int]int
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quotes:    map[int64]*Quote{},
		customers: map[int64]salesshared.CustomerRef{},
		products:  map[int64]salesshared.ProductRef{},
		seq:       map[int]int{},
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
		quotes:    make(map[int64]*Quote, len(m.quotes)),
		customers: m.customers,
		products:  m.products,
		seq:       make(map[int]int, len(m.seq)),
		nextID:    m.nextID,
	}
	for id, q := range m.quotes {
		cp := *q
		out.quotes[id] = &cp
	}
	for y, n := range m.seq {
		out.seq[y] = n
	}
	return out
}

func (m *memoryRepo) NextNumber(ctx context.Context, year int) (string, error) {
	m.seq[year]++
	return shared.FormatNumber(shared.DocumentQuote, year, m.seq[year])
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

func (m *memoryRepo) Insert(ctx context.Context, q Quote) (int64, error) {
	for _, existing := range m.quotes {
		if existing.Number == q.Number {
			return 0, fmt.Errorf("duplicate number %s", q.Number)
		}
	}
	m.nextID++
	q.ID = m.nextID
	q.CustomerName = m.customers[q.CustomerID].Name
	m.quotes[q.ID] = &q
	return q.ID, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Quote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, id int64) (*Quote, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Quote, int, error) {
	out := make([]Quote, 0)
	for _, q := range m.quotes {
		if filter.CustomerID != nil && q.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != "" && q.EffectiveStatus(filter.Today) != filter.Status {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) UpdateHeader(ctx context.Context, id int64, validUntil time.Time, notes *string) error {
	q, ok := m.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.ValidUntil = validUntil
	q.Notes = notes
	return nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	q, ok := m.quotes[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	return nil
}

func (m *memoryRepo) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	var n int64
	for _, q := range m.quotes {
		if q.Status.Open() && q.ValidUntil.Before(today) {
			q.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.quotes[id]; !ok {
		return ErrNotFound
	}
	delete(m.quotes, id)
	return nil
}
