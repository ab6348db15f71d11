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

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const insertAccountSQL = `
INSERT INTO accounts (id, username, pwd_hash, pwd_salt, role)
VALUES ($1, $2, $3, $4, $5)`

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	_, err := r.db.Pool.Exec(ctx, insertAccountSQL, a.ID, a.Username, a.PwdHash, a.PwdSalt, a.Role)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// CreateWithProfile inserts the account row and its default profile row in a
// single transaction. Either both exist afterwards or neither does.
func (r *AccountRepo) CreateWithProfile(ctx context.Context, a *model.Account, p *model.Profile) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, insertAccountSQL, a.ID, a.Username, a.PwdHash, a.PwdSalt, a.Role); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return err
	}
	_, err = tx.Exec(ctx, insertProfileSQL,
		p.ID, p.AccountID, langArg(p.Language),
		p.Nickname, p.Pronouns, p.Bio, p.Location, p.Website,
		p.Avatar.String(), p.Background.String(),
		p.Company, p.Title, p.School, p.Major)
	return err
}

// GetByID selects an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `
SELECT id, username, pwd_hash, pwd_salt, role, created_at, last_login_at
FROM accounts WHERE id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects an account by exact username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	const q = `
SELECT id, username, pwd_hash, pwd_salt, role, created_at, last_login_at
FROM accounts WHERE username=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, username))
}

func (r *AccountRepo) scanOne(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PwdHash, &a.PwdSalt, &a.Role, &a.CreatedAt, &a.LastLoginAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns every account ordered by creation time.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	const q = `
SELECT id, username, pwd_hash, pwd_salt, role, created_at, last_login_at
FROM accounts ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err = rows.Scan(&a.ID, &a.Username, &a.PwdHash, &a.PwdSalt, &a.Role, &a.CreatedAt, &a.LastLoginAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateLastLogin stamps the last successful login time.
func (r *AccountRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE accounts SET last_login_at=$2 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, at)
	return err
}

// UpdatePassword overwrites the stored hash and salt.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	const q = `UPDATE accounts SET pwd_hash=$2, pwd_salt=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the account row; dependent rows cascade.
func (r *AccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM accounts WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
