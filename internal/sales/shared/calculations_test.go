package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateTotals(t *testing.T) {
	totals, err := CalculateTotals([]LineInput{
		{ProductID: 1, Quantity: 1, UnitPrice: d("150000")},
		{ProductID: 4, Quantity: 1, UnitPrice: d("80000")},
	}, d("0.19"))
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(d("230000")))
	assert.True(t, totals.Tax.Equal(d("43700")))
	assert.True(t, totals.Total.Equal(d("273700")))
	require.Len(t, totals.Lines, 2)
	assert.True(t, totals.Lines[0].Total.Equal(d("150000")))
}

func TestCalculateTotalsRoundsOnlyTax(t *testing.T) {
	totals, err := CalculateTotals([]LineInput{
		{ProductID: 1, Quantity: 3, UnitPrice: d("0.35")},
	}, d("0.19"))
	require.NoError(t, err)
	// 1.05 * 0.19 = 0.1995 -> 0.20
	assert.True(t, totals.Subtotal.Equal(d("1.05")))
	assert.True(t, totals.Tax.Equal(d("0.20")))
	assert.True(t, totals.Total.Equal(d("1.25")))
}

func TestCalculateTotalsZeroRate(t *testing.T) {
	totals, err := CalculateTotals([]LineInput{{ProductID: 1, Quantity: 2, UnitPrice: d("10.10")}}, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Total.Equal(d("20.20")))
}

func TestCalculateTotalsRejectsInvalidLines(t *testing.T) {
	_, err := CalculateTotals([]LineInput{
		{ProductID: 1, Quantity: 1, UnitPrice: d("1")},
		{ProductID: 2, Quantity: 0, UnitPrice: d("1")},
	}, d("0.19"))
	require.ErrorIs(t, err, ErrInvalidLineItem)
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 1, lineErr.Index)

	_, err = CalculateTotals([]LineInput{{ProductID: 1, Quantity: 1, UnitPrice: d("-0.01")}}, d("0.19"))
	require.ErrorIs(t, err, ErrInvalidLineItem)

	// sub-cent prices
	_, err = CalculateTotals([]LineInput{
		{ProductID: 1, Quantity: 1, UnitPrice: d("0.005")},
		{ProductID: 2, Quantity: 1, UnitPrice: d("0.005")},
	}, d("0.19"))
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, 0, lineErr.Index)

	_, err = CalculateTotals([]LineInput{{ProductID: 1, Quantity: 4, UnitPrice: d("0.10")}}, d("0.19"))
	require.NoError(t, err)

	_, err = CalculateTotals(nil, d("0.19"))
	require.ErrorIs(t, err, ErrNoLineItems)

	_, err = CalculateTotals([]LineInput{{ProductID: 1, Quantity: 1, UnitPrice: d("1")}}, d("1.5"))
	require.ErrorIs(t, err, ErrInvalidTaxRate)
}

func TestRateFromPercent(t *testing.T) {
	assert.True(t, RateFromPercent(d("19.00")).Equal(d("0.19")))
}

func TestResolveLinesUsesCatalogPrice(t *testing.T) {
	override := d("99")
	products := map[int64]ProductRef{
		1: {ID: 1, Price: d("150000"), Status: StatusActive},
		2: {ID: 2, Price: d("80000"), Status: StatusActive},
	}
	lines, err := ResolveLines(CustomerRef{ID: 1, Status: StatusActive}, products, []ItemRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1, UnitPrice: &override},
	})
	require.NoError(t, err)
	assert.True(t, lines[0].UnitPrice.Equal(d("150000")))
	assert.True(t, lines[1].UnitPrice.Equal(d("99")))

	_, err = ResolveLines(CustomerRef{Status: StatusInactive}, products, nil)
	require.ErrorIs(t, err, ErrInactiveCustomer)

	products[2] = ProductRef{ID: 2, Status: StatusInactive}
	_, err = ResolveLines(CustomerRef{Status: StatusActive}, products, []ItemRequest{{ProductID: 2, Quantity: 1}})
	require.ErrorIs(t, err, ErrInactiveProduct)
}

func TestProductIDsDeduplicates(t *testing.T) {
	ids := ProductIDs([]ItemRequest{{ProductID: 3}, {ProductID: 1}, {ProductID: 3}})
	assert.Equal(t, []int64{3, 1}, ids)
}
