package repository

import (
	"context"

	"github.com/and161185/bio-card/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ProfileRepository loads and persists profile aggregates. language is the
// variant tag; empty selects the base/default profile.
type ProfileRepository interface {
	// Create inserts a new (usually empty) profile for the account/language.
	Create(ctx context.Context, p *model.Profile) error
	// GetAggregate loads the profile row plus all six child collections.
	GetAggregate(ctx context.Context, accountID uuid.UUID, language string) (*model.Profile, error)
	// Update replaces the profile's scalars and all collections in a single
	// transaction (delete-then-insert per collection).
	Update(ctx context.Context, accountID uuid.UUID, language string, upd *model.ProfileUpdate) error
	// Patch applies only the fields and collections present in the patch,
	// inside a single transaction.
	Patch(ctx context.Context, accountID uuid.UUID, language string, patch *model.ProfilePatch) error
	// ListLanguages returns the variant tags of the account's profiles, the
	// base profile reported as "".
	ListLanguages(ctx context.Context, accountID uuid.UUID) ([]string, error)
}
