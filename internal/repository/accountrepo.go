// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/bio-card/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccountRepository provides CRUD access for accounts.
type AccountRepository interface {
	// Create inserts a new account. Returns errs.ErrAlreadyExists on a
	// username conflict.
	Create(ctx context.Context, a *model.Account) error
	// CreateWithProfile inserts the account and its default profile in one
	// transaction, so an account can never exist without its base profile.
	// Returns errs.ErrAlreadyExists on a username conflict.
	CreateWithProfile(ctx context.Context, a *model.Account, p *model.Profile) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByUsername loads an account by exact username match.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	// List returns all accounts ordered by creation time.
	List(ctx context.Context) ([]model.Account, error)
	// UpdateLastLogin stamps the last successful login time.
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	// UpdatePassword overwrites the stored hash and salt.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error
	// Delete removes the account; tokens and profiles cascade at the store.
	Delete(ctx context.Context, id uuid.UUID) error
}
