package ar

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeriveStatus(t *testing.T) {
	due := day(2024, 3, 31)
	cases := []struct {
		name      string
		paid      string
		now       time.Time
		cancelled bool
		want      InvoiceStatus
	}{
		{"pending before due", "0", day(2024, 3, 10), false, StatusPending},
		{"pending on due date", "0", due.Add(23 * time.Hour), false, StatusPending},
		{"overdue after due date", "0", day(2024, 4, 1), false, StatusOverdue},
		{"partial", "100", day(2024, 3, 10), false, StatusPartial},
		{"partial wins over overdue", "100", day(2024, 5, 1), false, StatusPartial},
		{"paid", "1190", day(2024, 5, 1), false, StatusPaid},
		{"overpaid is paid", "1200", day(2024, 3, 10), false, StatusPaid},
		{"cancelled wins", "0", day(2024, 5, 1), true, StatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(dec(tc.paid), dec("1190"), due, tc.now, tc.cancelled))
		})
	}
}

func TestApplyPaymentRules(t *testing.T) {
	now := day(2024, 3, 10)
	inv := Invoice{Total: dec("1190"), Paid: dec("0"), DueDate: day(2024, 3, 31)}

	for _, amount := range []string{"0", "-5", "10.005"} {
		_, err := ApplyPayment(inv, dec(amount), now, true)
		assert.ErrorIs(t, err, ErrInvalidAmount, amount)
	}

	out, err := ApplyPayment(inv, dec("190.50"), now, true)
	require.NoError(t, err)
	assert.Equal(t, "190.5", out.Paid.String())
	assert.Equal(t, StatusPartial, out.Status)

	inv.Paid = out.Paid
	_, err = ApplyPayment(inv, dec("1000"), now, true)
	assert.ErrorIs(t, err, ErrOverpayment)

	out, err = ApplyPayment(inv, dec("1000"), now, false)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, out.Status)

	out, err = ApplyPayment(inv, dec("999.50"), now, true)
	require.NoError(t, err)
	assert.True(t, out.Paid.Equal(inv.Total))
	assert.Equal(t, StatusPaid, out.Status)

	inv.Paid = inv.Total
	_, err = ApplyPayment(inv, dec("1"), now, false)
	assert.ErrorIs(t, err, ErrInvoicePaid)

	cancelledAt := now
	_, err = ApplyPayment(Invoice{Total: dec("10"), Paid: dec("0"), CancelledAt: &cancelledAt}, dec("1"), now, true)
	assert.ErrorIs(t, err, ErrInvoiceCancelled)
}

func TestBucketAging(t *testing.T) {
	asOf := time.Date(2024, 6, 30, 18, 0, 0, 0, time.UTC)
	aging := BucketAging([]Outstanding{
		{InvoiceID: 1, DueDate: day(2024, 7, 15), Balance: dec("100")},
		{InvoiceID: 2, DueDate: day(2024, 6, 30), Balance: dec("50")},
		{InvoiceID: 3, DueDate: day(2024, 6, 29), Balance: dec("200")},
		{InvoiceID: 4, DueDate: day(2024, 5, 1), Balance: dec("300")},
		{InvoiceID: 5, DueDate: day(2024, 4, 15), Balance: dec("400")},
		{InvoiceID: 6, DueDate: day(2024, 1, 1), Balance: dec("500")},
		{InvoiceID: 7, DueDate: day(2024, 1, 1), Balance: dec("0")},
	}, asOf)

	assert.Equal(t, day(2024, 6, 30), aging.AsOf)
	assert.Equal(t, "150", aging.Current.String())
	assert.Equal(t, "200", aging.Days1To30.String())
	assert.Equal(t, "300", aging.Days31To60.String())
	assert.Equal(t, "400", aging.Days61To90.String())
	assert.Equal(t, "500", aging.Over90.String())
	assert.Equal(t, "1550", aging.Total.String())
}
