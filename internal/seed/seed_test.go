package seed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mipyme/backoffice/internal/ar"
	"github.com/mipyme/backoffice/internal/expenses"
	"github.com/mipyme/backoffice/internal/masterdata/categories"
	"github.com/mipyme/backoffice/internal/masterdata/companies"
	"github.com/mipyme/backoffice/internal/masterdata/products"
	"github.com/mipyme/backoffice/internal/sales/customers"
	"github.com/mipyme/backoffice/internal/sales/quotations"
	salesshared "github.com/mipyme/backoffice/internal/sales/shared"
	"github.com/mipyme/backoffice/internal/shared"
	"github.com/mipyme/backoffice/internal/testkit"
	"github.com/mipyme/backoffice/internal/users"
)

// world records every call so the test can check references between steps.
type world struct {
	nextID     int64
	users      map[string]int64
	company    *companies.UpdateCompanyRequest
	categories []categories.CategoryRequest
	products   []products.ProductRequest
	customers  []customers.CustomerRequest
	quotes     map[int64][]quotations.Status
	quoteItems map[int64][]salesshared.ItemPayload
	converted  []int64
	invoices   map[int64]*ar.Invoice
	payments   []ar.PaymentRequest
	expenses   []expenses.ExpenseRequest
	actors     []shared.Actor
}

func newWorld() *world {
	return &world{
		users:      map[string]int64{},
		quotes:     map[int64][]quotations.Status{},
		quoteItems: map[int64][]salesshared.ItemPayload{},
		invoices:   map[int64]*ar.Invoice{},
	}
}

func (w *world) id() int64 { w.nextID++; return w.nextID }

type fakeUsers struct{ *world }

func (f fakeUsers) Create(_ context.Context, req users.CreateUserRequest, _ shared.Actor) (*users.User, error) {
	if _, ok := f.users[req.Email]; ok {
		return nil, users.ErrDuplicateEmail
	}
	id := f.id()
	f.users[req.Email] = id
	return &users.User{ID: id, Email: req.Email, Role: req.Role, IsActive: true}, nil
}

type fakeCompany struct{ *world }

func (f fakeCompany) Update(_ context.Context, req companies.UpdateCompanyRequest) (*companies.Company, error) {
	f.company = &req
	return &companies.Company{ID: 1, Name: req.Name, Currency: req.Currency, TaxRate: *req.TaxRate}, nil
}

type fakeCategories struct{ *world }

func (f fakeCategories) Create(_ context.Context, req categories.CategoryRequest) (*categories.Category, error) {
	f.categories = append(f.categories, req)
	return &categories.Category{ID: f.id(), Name: req.Name}, nil
}

type fakeProducts struct{ *world }

func (f fakeProducts) Create(_ context.Context, req products.ProductRequest) (*products.Product, error) {
	f.products = append(f.products, req)
	return &products.Product{ID: f.id(), Name: req.Name}, nil
}

type fakeCustomers struct{ *world }

func (f fakeCustomers) Create(_ context.Context, req customers.CustomerRequest) (*customers.Customer, error) {
	f.customers = append(f.customers, req)
	return &customers.Customer{ID: f.id(), Name: req.Name}, nil
}

type fakeQuotes struct{ *world }

func (f fakeQuotes) Create(_ context.Context, req quotations.CreateQuoteRequest, actor shared.Actor) (*quotations.Quote, error) {
	f.actors = append(f.actors, actor)
	id := f.id()
	f.quotes[id] = []quotations.Status{quotations.StatusDraft}
	f.quoteItems[id] = req.Items
	return &quotations.Quote{ID: id, Number: fmt.Sprintf("COT-2024-%03d", len(f.quotes)), CustomerID: req.CustomerID}, nil
}

func (f fakeQuotes) ChangeStatus(_ context.Context, id int64, to quotations.Status, _ shared.Actor) (*quotations.Quote, error) {
	f.quotes[id] = append(f.quotes[id], to)
	return &quotations.Quote{ID: id}, nil
}

func (f fakeQuotes) Convert(_ context.Context, id int64, _ quotations.ConvertRequest, _ shared.Actor) (salesshared.IssuedDocument, error) {
	f.converted = append(f.converted, id)
	invID := f.id()
	number := fmt.Sprintf("FACT-2024-%03d", len(f.invoices)+1)
	f.invoices[invID] = &ar.Invoice{ID: invID, Number: number, QuoteID: &id, Total: decimal.NewFromInt(1523200)}
	return salesshared.IssuedDocument{ID: invID, Number: number}, nil
}

type fakeInvoices struct{ *world }

func (f fakeInvoices) Create(_ context.Context, req ar.CreateInvoiceRequest, _ shared.Actor) (*ar.Invoice, error) {
	id := f.id()
	inv := &ar.Invoice{ID: id, Number: fmt.Sprintf("FACT-2024-%03d", len(f.invoices)+1), CustomerID: req.CustomerID}
	f.invoices[id] = inv
	return inv, nil
}

func (f fakeInvoices) Get(_ context.Context, id int64) (*ar.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, ar.ErrNotFound
	}
	return inv, nil
}

func (f fakeInvoices) ApplyPayment(_ context.Context, invoiceID int64, req ar.PaymentRequest, key string, _ shared.Actor) (*ar.PaymentResult, error) {
	if key == "" {
		return nil, fmt.Errorf("missing key")
	}
	f.payments = append(f.payments, req)
	return &ar.PaymentResult{Invoice: f.invoices[invoiceID]}, nil
}

type fakeExpenses struct{ *world }

func (f fakeExpenses) Create(_ context.Context, req expenses.ExpenseRequest, actor shared.Actor) (*expenses.Expense, error) {
	f.expenses = append(f.expenses, req)
	f.actors = append(f.actors, actor)
	return &expenses.Expense{ID: f.id(), UserID: actor.UserID}, nil
}

func targets(w *world) Targets {
	return Targets{
		Users:      fakeUsers{w},
		Company:    fakeCompany{w},
		Categories: fakeCategories{w},
		Products:   fakeProducts{w},
		Customers:  fakeCustomers{w},
		Quotes:     fakeQuotes{w},
		Invoices:   fakeInvoices{w},
		Expenses:   fakeExpenses{w},
	}
}

func TestRunLoadsDemoData(t *testing.T) {
	w := newWorld()
	now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)
	logger := testkit.Logger()

	res, err := Run(context.Background(), targets(w), now, logger)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Categories)
	assert.Equal(t, 5, res.Products)
	assert.Equal(t, 4, res.Customers)
	assert.Equal(t, []string{"COT-2024-001", "COT-2024-002"}, res.Quotes)
	assert.Equal(t, []string{"FACT-2024-001", "FACT-2024-002"}, res.Invoices)
	assert.Equal(t, 1, res.Payments)
	assert.Equal(t, 4, res.Expenses)

	require.NotNil(t, w.company)
	assert.Equal(t, "CLP", w.company.Currency)
	assert.True(t, w.company.TaxRate.Equal(decimal.NewFromInt(19)))

	for _, statuses := range w.quotes {
		assert.Equal(t, quotations.StatusDraft, statuses[0])
	}
	require.Len(t, w.converted, 1)
	assert.Equal(t, []quotations.Status{quotations.StatusDraft, quotations.StatusSent, quotations.StatusAccepted}, w.quotes[w.converted[0]])

	require.Len(t, w.payments, 1)
	assert.True(t, w.payments[0].Amount.Equal(decimal.NewFromInt(1523200)))
	assert.Equal(t, ar.MethodTransfer, w.payments[0].Method)

	assert.Equal(t, "2024-06-15", w.expenses[0].Date)
	for _, a := range w.actors {
		assert.Equal(t, res.AdminID, a.UserID)
		assert.Equal(t, shared.RoleAdmin, a.Role)
	}
}

func TestRunRefusesSecondSeed(t *testing.T) {
	w := newWorld()
	logger := testkit.Logger()
	_, err := Run(context.Background(), targets(w), time.Now(), logger)
	require.NoError(t, err)

	_, err = Run(context.Background(), targets(w), time.Now(), logger)
	require.ErrorIs(t, err, ErrAlreadySeeded)
}
