package postgres

import (
	"context"
	"testing"

	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSettingsRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT title, logo FROM settings WHERE id=\$1`).
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"title", "logo"}).
			AddRow("Bio Card", "https://cdn.example.com/logo.png"))

	s, err := r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bio Card", s.Title)
	require.Equal(t, model.AssetRemote, s.Logo.Kind)
}

func TestSettingsRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSettingsRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT title, logo FROM settings WHERE id=\$1`).
		WithArgs(1).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(ctx)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSettingsRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSettingsRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO settings \(id, title, logo\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(id\) DO UPDATE SET title=EXCLUDED.title, logo=EXCLUDED.logo`).
		WithArgs(1, "My Site", "🌱").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.Upsert(ctx, &model.Settings{
		Title: "My Site",
		Logo:  model.Asset{Kind: model.AssetText, Text: "🌱"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
