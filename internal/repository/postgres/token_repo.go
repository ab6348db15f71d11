package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TokenRepo implements TokenRepository using PostgreSQL.
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// Insert stores a new token row.
func (r *TokenRepo) Insert(ctx context.Context, t *model.Token) error {
	const q = `
INSERT INTO tokens (value, account_id, device, created_at, last_used_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, t.Value, t.AccountID, t.Device, t.CreatedAt, t.LastUsedAt, t.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByValue selects a token by its exact value.
func (r *TokenRepo) GetByValue(ctx context.Context, value string) (*model.Token, error) {
	const q = `
SELECT value, account_id, device, created_at, last_used_at, expires_at
FROM tokens WHERE value=$1`
	row := r.db.Pool.QueryRow(ctx, q, value)
	var t model.Token
	if err := row.Scan(&t.Value, &t.AccountID, &t.Device, &t.CreatedAt, &t.LastUsedAt, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Touch updates the last-used timestamp.
func (r *TokenRepo) Touch(ctx context.Context, value string, at time.Time) error {
	const q = `UPDATE tokens SET last_used_at=$2 WHERE value=$1`
	_, err := r.db.Pool.Exec(ctx, q, value, at)
	return err
}

// Delete removes a single token row. A concurrent eviction may have removed
// it already; that is not an error.
func (r *TokenRepo) Delete(ctx context.Context, value string) error {
	const q = `DELETE FROM tokens WHERE value=$1`
	_, err := r.db.Pool.Exec(ctx, q, value)
	return err
}

// DeleteForAccount removes every token owned by the account.
func (r *TokenRepo) DeleteForAccount(ctx context.Context, accountID uuid.UUID) error {
	const q = `DELETE FROM tokens WHERE account_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, accountID)
	return err
}

// EvictOldest removes the account's expired rows together with its single
// oldest live token. Only live rows are eviction candidates, so an
// expired-but-unswept row cannot absorb the eviction and leave the account
// over its live-token cap. FOR UPDATE SKIP LOCKED keeps two concurrent
// evictions from collapsing onto the same row: each one locks and deletes a
// distinct token.
func (r *TokenRepo) EvictOldest(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	const q = `
DELETE FROM tokens WHERE account_id=$1 AND (expires_at <= $2 OR value IN (
  SELECT value FROM tokens WHERE account_id=$1 AND expires_at > $2
  ORDER BY created_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED
))`
	_, err := r.db.Pool.Exec(ctx, q, accountID, now)
	return err
}

// CountLive returns the number of tokens not yet expired at the instant.
func (r *TokenRepo) CountLive(ctx context.Context, accountID uuid.UUID, now time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM tokens WHERE account_id=$1 AND expires_at > $2`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, accountID, now).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteExpired bulk-removes all tokens past expiry.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM tokens WHERE expires_at < $1`
	tag, err := r.db.Pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
