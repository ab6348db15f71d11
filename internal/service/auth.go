// Package service contains application services for sessions, profiles and
// administration.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/bio-card/internal/cache"
	pkgcrypto "github.com/and161185/bio-card/internal/crypto"
	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/and161185/bio-card/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Session policy defaults.
const (
	DefaultTokenCap      = 10
	DefaultTokenTTL      = 7 * 24 * time.Hour
	DefaultSweepInterval = time.Hour

	// rootDeviceLabel tags sessions of the root account.
	rootDeviceLabel = "Root Login"

	// placeholderAvatar seeds a freshly created default profile.
	placeholderAvatar = "👋"
)

// AuthService defines session and bootstrap operations.
type AuthService interface {
	// Signup creates an account with its default profile and issues the
	// first session token.
	Signup(ctx context.Context, username, password string) (token string, err error)
	// Login authenticates and issues a session token.
	Login(ctx context.Context, username, password, device string) (token string, account *model.Account, err error)
	// CreateToken issues a token for an already-authenticated account,
	// evicting the oldest live token when the per-account cap is reached.
	CreateToken(ctx context.Context, account *model.Account, device string) (string, error)
	// ValidateToken resolves a bearer token to its account, lazily deleting
	// expired rows. Unknown and expired both surface errs.ErrInvalidToken.
	ValidateToken(ctx context.Context, value string) (*model.Account, error)
	// Logout destroys a single session token.
	Logout(ctx context.Context, value string) error
	// InvalidateAllTokens destroys every session of the account.
	InvalidateAllTokens(ctx context.Context, accountID uuid.UUID) error
	// HasAdminPermission reports whether the account may perform
	// administrative operations.
	HasAdminPermission(account *model.Account) bool
	// EnsureRoot reconciles the bootstrap root account: creates it when
	// absent, otherwise re-hashes and overwrites its password.
	EnsureRoot(ctx context.Context, username, password string) error
	// RunCleanup bulk-deletes expired tokens; returns the rows removed.
	RunCleanup(ctx context.Context) (int64, error)
}

// AuthConfig tunes session issuance and cleanup.
type AuthConfig struct {
	TokenCap      int
	TokenTTL      time.Duration
	SweepInterval time.Duration
}

func (c *AuthConfig) applyDefaults() {
	if c.TokenCap == 0 {
		c.TokenCap = DefaultTokenCap
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}
}

// AuthServiceImpl is the store-backed session manager.
type AuthServiceImpl struct {
	accounts repository.AccountRepository
	tokens   repository.TokenRepository
	store    *cache.Cache
	cfg      AuthConfig
	log      *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	accounts repository.AccountRepository,
	tokens repository.TokenRepository,
	store *cache.Cache,
	cfg AuthConfig,
	log *zap.Logger,
) *AuthServiceImpl {
	cfg.applyDefaults()
	return &AuthServiceImpl{accounts: accounts, tokens: tokens, store: store, cfg: cfg, log: log}
}

// Signup creates a regular account, its default profile and a first token.
// Root accounts can never be created through this path.
func (s *AuthServiceImpl) Signup(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", errs.ErrInvalidCredentials
	}
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return "", errs.ErrAlreadyExists
	}

	a, err := newAccount(username, password, model.RoleUser)
	if err != nil {
		return "", err
	}
	p, err := defaultProfile(a.ID)
	if err != nil {
		return "", err
	}
	if err := s.accounts.CreateWithProfile(ctx, a, p); err != nil {
		return "", err
	}
	// a lookup before signup may have cached the username's absence
	s.store.Remove(ctx, cache.ProfileKey(username, ""))

	return s.CreateToken(ctx, a, "Signup")
}

// Login authenticates the account and issues a session token. Unknown
// username, wrong password and malformed stored material all collapse to
// ErrInvalidCredentials.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, device string) (string, *model.Account, error) {
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), a.PwdSalt, a.PwdHash) {
		return "", nil, errs.ErrInvalidCredentials
	}

	if err := s.accounts.UpdateLastLogin(ctx, a.ID, time.Now()); err != nil {
		// diagnostics only; a failed stamp must not fail the login
		s.log.Warn("last-login stamp failed", zap.Error(err))
	}

	token, err := s.CreateToken(ctx, a, device)
	if err != nil {
		return "", nil, err
	}
	return token, a, nil
}

// CreateToken issues a fresh opaque token. When the account already holds the
// maximum number of live tokens, the oldest by creation time is evicted first.
func (s *AuthServiceImpl) CreateToken(ctx context.Context, account *model.Account, device string) (string, error) {
	now := time.Now()

	live, err := s.tokens.CountLive(ctx, account.ID, now)
	if err != nil {
		return "", err
	}
	if live >= s.cfg.TokenCap {
		if err := s.tokens.EvictOldest(ctx, account.ID, now); err != nil {
			return "", err
		}
	}

	value, err := pkgcrypto.NewTokenValue()
	if err != nil {
		return "", err
	}
	if account.Role == model.RoleRoot && device == "" {
		device = rootDeviceLabel
	}
	t := &model.Token{
		Value:      value,
		AccountID:  account.ID,
		Device:     device,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(s.cfg.TokenTTL),
	}
	if err := s.tokens.Insert(ctx, t); err != nil {
		return "", err
	}
	return value, nil
}

// ValidateToken resolves a bearer value to its account. Expired tokens are
// deleted on sight; the last-used stamp is best-effort and never fails the
// surrounding request.
func (s *AuthServiceImpl) ValidateToken(ctx context.Context, value string) (*model.Account, error) {
	t, err := s.tokens.GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidToken
		}
		return nil, err
	}

	now := time.Now()
	if t.Expired(now) {
		if err := s.tokens.Delete(ctx, value); err != nil {
			s.log.Warn("lazy token cleanup failed", zap.Error(err))
		}
		return nil, errs.ErrInvalidToken
	}

	if err := s.tokens.Touch(ctx, value, now); err != nil {
		s.log.Warn("token touch failed", zap.Error(err))
	}

	a, err := s.accounts.GetByID(ctx, t.AccountID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidToken
		}
		return nil, err
	}
	return a, nil
}

// Logout destroys one session token. Unknown values are a no-op.
func (s *AuthServiceImpl) Logout(ctx context.Context, value string) error {
	return s.tokens.Delete(ctx, value)
}

// InvalidateAllTokens destroys every session of the account.
func (s *AuthServiceImpl) InvalidateAllTokens(ctx context.Context, accountID uuid.UUID) error {
	return s.tokens.DeleteForAccount(ctx, accountID)
}

// HasAdminPermission reports whether the role grants administrative access.
func (s *AuthServiceImpl) HasAdminPermission(account *model.Account) bool {
	return account != nil && account.Role.IsAdmin()
}

// EnsureRoot is the idempotent bootstrap reconciliation run once at process
// init. With empty credentials it does nothing. An existing root account gets
// its password re-hashed and overwritten; an absent one is created together
// with its default profile.
func (s *AuthServiceImpl) EnsureRoot(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	existing, err := s.accounts.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != model.RoleRoot {
			return errs.ErrRootProtected
		}
		salt, err := pkgcrypto.NewSalt()
		if err != nil {
			return err
		}
		return s.accounts.UpdatePassword(ctx, existing.ID, pkgcrypto.HashPassword([]byte(password), salt), salt)
	case errors.Is(err, errs.ErrNotFound):
		a, err := newAccount(username, password, model.RoleRoot)
		if err != nil {
			return err
		}
		p, err := defaultProfile(a.ID)
		if err != nil {
			return err
		}
		return s.accounts.CreateWithProfile(ctx, a, p)
	default:
		return err
	}
}

// RunCleanup bulk-deletes all expired tokens, independent of the lazy
// per-lookup cleanup. Guards against tokens issued but never validated.
func (s *AuthServiceImpl) RunCleanup(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, time.Now())
}

// StartSweeper runs RunCleanup on the configured interval until ctx is done.
func (s *AuthServiceImpl) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.RunCleanup(ctx)
				if err != nil {
					s.log.Warn("token sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					s.log.Info("token sweep", zap.Int64("deleted", n))
				}
			}
		}
	}()
}

func newAccount(username, password string, role model.Role) (*model.Account, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return nil, err
	}
	return &model.Account{
		ID:       id,
		Username: username,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), salt),
		PwdSalt:  salt,
		Role:     role,
	}, nil
}

// defaultProfile builds the empty base profile created alongside every
// account.
func defaultProfile(accountID uuid.UUID) (*model.Profile, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &model.Profile{
		ID:        id,
		AccountID: accountID,
		Avatar:    model.Asset{Kind: model.AssetText, Text: placeholderAvatar},
	}, nil
}
