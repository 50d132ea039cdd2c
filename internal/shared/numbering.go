package shared

import (
	"context"
	"fmt"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// DocumentType identifies a numbered document series.
type DocumentType string

const (
	DocumentQuote   DocumentType = "QUOTE"
	DocumentInvoice DocumentType = "INVOICE"
)

// MaxSequence is the last number a series may issue in one year.
const MaxSequence = 999

// ErrSequenceExhausted is returned once a series passes MaxSequence in a year.
var ErrSequenceExhausted = httpx.Rule(httpx.CodeSequenceExhausted, "Se agotó la numeración anual para este tipo de documento")

// Prefix returns the number prefix for the series.
func (d DocumentType) Prefix() string {
	switch d {
	case DocumentQuote:
		return "COT"
	case DocumentInvoice:
		return "FACT"
	default:
		return string(d)
	}
}

// FormatNumber renders <PREFIX>-<YYYY>-<NNN>.
func FormatNumber(doc DocumentType, year, seq int) (string, error) {
	if seq < 1 {
		return "", fmt.Errorf("numbering: invalid sequence %d", seq)
	}
	if seq > MaxSequence {
		return "", ErrSequenceExhausted
	}
	return fmt.Sprintf("%s-%04d-%03d", doc.Prefix(), year, seq), nil
}

// NextNumber allocates the next number of the series for year. It must run in
// the same transaction that inserts the document so a rollback releases the
// slot; the upsert takes a row lock that serializes concurrent allocators.
func NextNumber(ctx context.Context, q db.DBTX, doc DocumentType, year int) (string, error) {
	var seq int
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, year, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, year)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, string(doc), year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("numbering: allocate %s %d: %w", doc, year, err)
	}
	return FormatNumber(doc, year, seq)
}
