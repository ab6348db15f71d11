package postgres

import (
	"context"
	"errors"

	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/jackc/pgx/v5"
)

// settingsRowID is the fixed ID of the singleton settings row.
const settingsRowID = 1

// SettingsRepo implements SettingsRepository using PostgreSQL.
type SettingsRepo struct{ db *DB }

// NewSettingsRepo constructs a settings repository.
func NewSettingsRepo(db *DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get loads the singleton settings row.
func (r *SettingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	const q = `SELECT title, logo FROM settings WHERE id=$1`
	var s model.Settings
	var logo string
	if err := r.db.Pool.QueryRow(ctx, q, settingsRowID).Scan(&s.Title, &logo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	s.Logo = model.ParseAsset(logo)
	return &s, nil
}

// Upsert creates or updates the settings row in place.
func (r *SettingsRepo) Upsert(ctx context.Context, s *model.Settings) error {
	const q = `
INSERT INTO settings (id, title, logo) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, logo=EXCLUDED.logo`
	_, err := r.db.Pool.Exec(ctx, q, settingsRowID, s.Title, s.Logo.String())
	return err
}
