package service

import (
	"context"
	"errors"

	"github.com/and161185/bio-card/internal/cache"
	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/and161185/bio-card/internal/repository"
	"go.uber.org/zap"
)

// defaultSiteTitle seeds the settings row on first access.
const defaultSiteTitle = "Bio Card"

// AdminService defines administrative user management and system settings.
// Every operation takes the acting account, already resolved by the session
// manager, and rejects non-admin actors.
type AdminService interface {
	// ListAccounts returns all accounts.
	ListAccounts(ctx context.Context, actor *model.Account) ([]model.Account, error)
	// CreateAccount creates a user or admin account with its default
	// profile. Root creation is rejected.
	CreateAccount(ctx context.Context, actor *model.Account, username, password string, role model.Role) error
	// DeleteAccount removes an account, its sessions and profiles. The root
	// account cannot be deleted.
	DeleteAccount(ctx context.Context, actor *model.Account, username string) error
	// GetSettings returns the cached system settings, creating defaults on
	// first access.
	GetSettings(ctx context.Context) (*model.Settings, error)
	// UpdateSettings replaces the settings row and invalidates its cache key.
	UpdateSettings(ctx context.Context, actor *model.Account, s *model.Settings) error
}

// AdminServiceImpl implements AdminService on top of the repositories and the
// shared cache.
type AdminServiceImpl struct {
	accounts repository.AccountRepository
	tokens   repository.TokenRepository
	profiles repository.ProfileRepository
	settings repository.SettingsRepository
	auth     AuthService
	store    *cache.Cache
	log      *zap.Logger
}

// NewAdminService constructs AdminService with required dependencies.
func NewAdminService(
	accounts repository.AccountRepository,
	tokens repository.TokenRepository,
	profiles repository.ProfileRepository,
	settings repository.SettingsRepository,
	auth AuthService,
	store *cache.Cache,
	log *zap.Logger,
) *AdminServiceImpl {
	return &AdminServiceImpl{
		accounts: accounts, tokens: tokens, profiles: profiles,
		settings: settings, auth: auth, store: store, log: log,
	}
}

func (s *AdminServiceImpl) requireAdmin(actor *model.Account) error {
	if !s.auth.HasAdminPermission(actor) {
		return errs.ErrForbidden
	}
	return nil
}

// ListAccounts returns every account ordered by creation time.
func (s *AdminServiceImpl) ListAccounts(ctx context.Context, actor *model.Account) ([]model.Account, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.accounts.List(ctx)
}

// CreateAccount creates a non-root account with its default profile.
func (s *AdminServiceImpl) CreateAccount(ctx context.Context, actor *model.Account, username, password string, role model.Role) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if role == model.RoleRoot {
		return errs.ErrRootProtected
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return errs.ErrForbidden
	}
	if username == "" || password == "" {
		return errs.ErrInvalidCredentials
	}

	a, err := newAccount(username, password, role)
	if err != nil {
		return err
	}
	p, err := defaultProfile(a.ID)
	if err != nil {
		return err
	}
	if err := s.accounts.CreateWithProfile(ctx, a, p); err != nil {
		return err
	}
	s.store.Remove(ctx, cache.ProfileKey(username, ""))
	return nil
}

// DeleteAccount removes the account after invalidating all its sessions and
// cached profile variants. Root is protected.
func (s *AdminServiceImpl) DeleteAccount(ctx context.Context, actor *model.Account, username string) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if a.Role == model.RoleRoot {
		return errs.ErrRootProtected
	}

	langs, err := s.profiles.ListLanguages(ctx, a.ID)
	if err != nil {
		return err
	}
	if err := s.tokens.DeleteForAccount(ctx, a.ID); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, a.ID); err != nil {
		return err
	}
	for _, lang := range langs {
		s.store.Remove(ctx, cache.ProfileKey(username, lang))
	}
	return nil
}

// GetSettings returns the cached singleton settings, creating the row with
// defaults the first time it is asked for. Reads are not admin-gated: the
// public layer needs the branding too.
func (s *AdminServiceImpl) GetSettings(ctx context.Context) (*model.Settings, error) {
	return cache.GetOrSet(ctx, s.store, cache.SettingsKey, func(ctx context.Context) (*model.Settings, error) {
		st, err := s.settings.Get(ctx)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		st = &model.Settings{Title: defaultSiteTitle, Logo: model.Asset{Kind: model.AssetText}}
		if err := s.settings.Upsert(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	})
}

// UpdateSettings replaces the row in place, then invalidates the cache key.
func (s *AdminServiceImpl) UpdateSettings(ctx context.Context, actor *model.Account, settings *model.Settings) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return err
	}
	s.store.Remove(ctx, cache.SettingsKey)
	return nil
}
