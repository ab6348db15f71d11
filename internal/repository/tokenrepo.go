package repository

import (
	"context"
	"time"

	"github.com/and161185/bio-card/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TokenRepository provides row-level access to session tokens.
type TokenRepository interface {
	// Insert stores a new token row.
	Insert(ctx context.Context, t *model.Token) error
	// GetByValue loads a token by its exact value.
	GetByValue(ctx context.Context, value string) (*model.Token, error)
	// Touch updates the last-used timestamp.
	Touch(ctx context.Context, value string, at time.Time) error
	// Delete removes a single token. Deleting an absent row is a no-op.
	Delete(ctx context.Context, value string) error
	// DeleteForAccount removes every token owned by the account.
	DeleteForAccount(ctx context.Context, accountID uuid.UUID) error
	// EvictOldest frees one live-token slot for the account: it removes the
	// account's expired rows and its single oldest (by creation time) live
	// token. Expired rows must not absorb the eviction.
	EvictOldest(ctx context.Context, accountID uuid.UUID, now time.Time) error
	// CountLive returns the number of tokens not yet expired at the instant.
	CountLive(ctx context.Context, accountID uuid.UUID, now time.Time) (int, error)
	// DeleteExpired bulk-removes all tokens past expiry; returns rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
