package repository

import (
	"context"

	"github.com/and161185/bio-card/internal/model"
)

// SettingsRepository manages the singleton system-settings row.
type SettingsRepository interface {
	// Get loads the settings row; errs.ErrNotFound when absent.
	Get(ctx context.Context) (*model.Settings, error)
	// Upsert creates or replaces the settings row in place.
	Upsert(ctx context.Context, s *model.Settings) error
}
