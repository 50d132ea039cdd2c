package products

import (
	"context"
	"sort"

	"github.com/mipyme/backoffice/internal/platform/httpx"
)

type memoryRepo struct {
	products   map[int64]*Product
	categories map[int64]string
	referenced map[int64]bool
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:   map[int64]*Product{},
		categories: map[int64]string{},
		referenced: map[int64]bool{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	out := make([]Product, 0)
	for _, p := range m.products {
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	if out.CategoryID != nil {
		out.Category = &CategoryRef{ID: *out.CategoryID, Name: m.categories[*out.CategoryID]}
	}
	return &out, nil
}

func (m *memoryRepo) SKUTaken(ctx context.Context, sku string, excludeID int64) (bool, error) {
	for id, p := range m.products {
		if id != excludeID && p.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) CategoryExists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.categories[id]
	return ok, nil
}

func (m *memoryRepo) Create(ctx context.Context, p Product) (int64, error) {
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = &p
	return p.ID, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, p Product) error {
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	p.ID = id
	m.products[id] = &p
	return nil
}

func (m *memoryRepo) IsReferenced(ctx context.Context, id int64) (bool, error) {
	return m.referenced[id], nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.products, id)
	return nil
}
