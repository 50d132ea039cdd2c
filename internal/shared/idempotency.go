package shared

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mipyme/backoffice/internal/platform/db"
	"github.com/mipyme/backoffice/internal/platform/httpx"
)

// IdempotencyHeader carries the client supplied key on retried writes.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// ErrIdempotencyConflict indicates the key was already claimed in the module.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore records claimed request keys per module.
type IdempotencyStore struct {
	db  db.DBTX
	now func() time.Time
}

// NewIdempotencyStore constructs the store. Claims made through a transaction
// disappear with it if the transaction rolls back.
func NewIdempotencyStore(conn db.DBTX) *IdempotencyStore {
	return &IdempotencyStore{db: conn, now: time.Now}
}

// Claim records key for module. It uses ON CONFLICT so a duplicate does not
// abort the surrounding transaction.
func (s *IdempotencyStore) Claim(ctx context.Context, module, key string) error {
	if s == nil || s.db == nil {
		return errors.New("idempotency store not initialised")
	}
	key = strings.TrimSpace(key)
	if key == "" || len(key) > maxIdempotencyKeyLen {
		return httpx.Invalid(IdempotencyHeader, "debe tener entre 1 y 128 caracteres")
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO idempotency_keys (module, key, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (module, key) DO NOTHING`, module, key, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Cleanup removes keys claimed before now-olderThan and reports how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
