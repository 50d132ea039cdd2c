// Package shared holds document math used by quotes and invoices.
package shared

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// MoneyPlaces is the number of decimals money amounts are stored with.
const MoneyPlaces = 2

var (
	// ErrInvalidLineItem reports a line with non-positive quantity, or a price
	// that is negative or finer than MoneyPlaces.
	ErrInvalidLineItem = httpx.Rule(httpx.CodeInvalidLineItem, "Las líneas deben tener cantidad mayor a cero y precio no negativo con hasta dos decimales")
	// ErrNoLineItems reports a document without lines.
	ErrNoLineItems = httpx.Rule(httpx.CodeInvalidLineItem, "El documento debe tener al menos una línea")
	// ErrInvalidTaxRate reports a rate outside [0, 1).
	ErrInvalidTaxRate = httpx.Rule(httpx.CodeMissingTaxSettings, "La tasa de impuesto configurada es inválida")
)

// LineInput is a priced document line.
type LineInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// LineTotal is a line with its extended amount.
type LineTotal struct {
	LineInput
	Total decimal.Decimal
}

// Totals is the result of pricing a document.
type Totals struct {
	Lines    []LineTotal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// LineError identifies the offending line of an invalid document.
type LineError struct {
	Index int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Index, ErrInvalidLineItem.Message)
}

func (e *LineError) Unwrap() error {
	return ErrInvalidLineItem
}

// CalculateTotals prices items at the fractional tax rate (0.19 for 19%).
// Unit prices carry at most MoneyPlaces decimals, so line amounts and the
// subtotal are exact at storage precision; only the tax is rounded, half away
// from zero, to MoneyPlaces. Total is subtotal plus the rounded tax.
func CalculateTotals(items []LineInput, rate decimal.Decimal) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, ErrNoLineItems
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Totals{}, ErrInvalidTaxRate
	}
	out := Totals{Lines: make([]LineTotal, 0, len(items)), Subtotal: decimal.Zero}
	for i, item := range items {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() || !item.UnitPrice.Equal(item.UnitPrice.Round(MoneyPlaces)) {
			return Totals{}, &LineError{Index: i}
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		out.Lines = append(out.Lines, LineTotal{LineInput: item, Total: lineTotal})
		out.Subtotal = out.Subtotal.Add(lineTotal)
	}
	out.Tax = out.Subtotal.Mul(rate).Round(MoneyPlaces)
	out.Total = out.Subtotal.Add(out.Tax)
	return out, nil
}

// RateFromPercent converts a stored percentage (19.00) into a fraction (0.19).
func RateFromPercent(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(decimal.NewFromInt(100))
}
