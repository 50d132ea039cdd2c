package categories

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mipyme/backoffice/internal/platform/httpx"
	"github.com/mipyme/backoffice/internal/shared"
)

type memoryRepo struct {
	categories map[int64]*Category
	// productCategory maps product id to category id.
	productCategory map[int64]*int64
	nextID          int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{categories: map[int64]*Category{}, productCategory: map[int64]*int64{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(ctx context.Context, params httpx.PageParams) ([]Category, int, error) {
	out := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *memoryRepo) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	for id, c := range m.categories {
		if id != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Create(ctx context.Context, category Category) (*Category, error) {
	m.nextID++
	category.ID = m.nextID
	m.categories[category.ID] = &category
	return m.Get(ctx, category.ID)
}

func (m *memoryRepo) Update(ctx context.Context, id int64, category Category) (*Category, error) {
	category.ID = id
	m.categories[id] = &category
	return m.Get(ctx, id)
}

func (m *memoryRepo) DetachProducts(ctx context.Context, id int64) (int64, error) {
	var n int64
	for pid, cid := range m.productCategory {
		if cid != nil && *cid == id {
			m.productCategory[pid] = nil
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.categories, id)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Create(context.Background(), CategoryRequest{Name: "Software"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CategoryRequest{Name: " software "})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestUpdateAllowsOwnName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	c, err := svc.Create(context.Background(), CategoryRequest{Name: "Servicios"})
	require.NoError(t, err)
	updated, err := svc.Update(context.Background(), c.ID, CategoryRequest{Name: "Servicios", Description: "Horas"})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Horas", *updated.Description)
}

func TestDeleteDetachesProducts(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)
	c, err := svc.Create(context.Background(), CategoryRequest{Name: "Software"})
	require.NoError(t, err)
	repo.productCategory[10] = &c.ID
	other := int64(99)
	repo.productCategory[11] = &other

	require.NoError(t, svc.Delete(context.Background(), c.ID, shared.Actor{UserID: 1, Role: shared.RoleAdmin}))
	assert.Nil(t, repo.productCategory[10])
	assert.Equal(t, &other, repo.productCategory[11])
	require.Len(t, audit.logs, 1)
	assert.Equal(t, int64(1), audit.logs[0].Meta["detached_products"])

	err = svc.Delete(context.Background(), c.ID, shared.Actor{UserID: 1, Role: shared.RoleAdmin})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
