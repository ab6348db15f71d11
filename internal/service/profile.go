package service

import (
	"context"
	"errors"
	"strings"

	"github.com/and161185/bio-card/internal/cache"
	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/and161185/bio-card/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// ProfileService defines cached profile reads, transactional writes and
// export/import.
type ProfileService interface {
	// GetProfile resolves a username (and optional language variant) to its
	// mapped profile view through the cache. nil means no such profile.
	GetProfile(ctx context.Context, username, language string) (*model.Profile, error)
	// UpdateProfile fully replaces scalars and collections; false when the
	// profile does not exist.
	UpdateProfile(ctx context.Context, username, language string, upd *model.ProfileUpdate) (bool, error)
	// PatchProfile applies only the provided fields; absent means untouched,
	// present-but-empty collections clear. False when the profile is absent.
	PatchProfile(ctx context.Context, username, language string, patch *model.ProfilePatch) (bool, error)
	// GetExportData bundles the account identity, a caller-supplied valid
	// token and the mapped profile.
	GetExportData(ctx context.Context, account *model.Account, tokenValue string) (*model.ExportData, error)
	// ImportData applies an export bundle to the target account after a
	// case-insensitive username check. A mismatch rejects the import without
	// touching the store.
	ImportData(ctx context.Context, username string, data *model.ExportData) (bool, error)
}

// ProfileServiceImpl is the cache-fronted profile repository facade.
type ProfileServiceImpl struct {
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
	store    *cache.Cache
	log      *zap.Logger
}

// NewProfileService constructs ProfileService with required dependencies.
func NewProfileService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	store *cache.Cache,
	log *zap.Logger,
) *ProfileServiceImpl {
	return &ProfileServiceImpl{accounts: accounts, profiles: profiles, store: store, log: log}
}

// GetProfile reads through the cache; on miss the aggregate is loaded from
// the store and cached. An absent account or profile is a nil result, not an
// error, and the absence itself is cached until the next write invalidates it.
func (s *ProfileServiceImpl) GetProfile(ctx context.Context, username, language string) (*model.Profile, error) {
	key := cache.ProfileKey(username, language)
	return cache.GetOrSet(ctx, s.store, key, func(ctx context.Context) (*model.Profile, error) {
		a, err := s.accounts.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		p, err := s.profiles.GetAggregate(ctx, a.ID, language)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return p, nil
	})
}

// UpdateProfile replaces the whole aggregate inside one transaction, then
// invalidates the cache key. The invalidation happens strictly after commit
// so a concurrent reader cannot repopulate the cache from uncommitted state.
// Writing a language variant that does not exist yet creates it, as long as
// the account's base profile exists.
func (s *ProfileServiceImpl) UpdateProfile(ctx context.Context, username, language string, upd *model.ProfileUpdate) (bool, error) {
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.profiles.Update(ctx, a.ID, language, upd); err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return false, err
		}
		if language == "" {
			return false, nil
		}
		if err := s.createVariant(ctx, a.ID, language, upd); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
	}

	s.store.Remove(ctx, cache.ProfileKey(username, language))
	return true, nil
}

// createVariant inserts the missing language variant and replays the update
// against it. The base profile must exist; ErrNotFound otherwise.
func (s *ProfileServiceImpl) createVariant(ctx context.Context, accountID uuid.UUID, language string, upd *model.ProfileUpdate) error {
	if _, err := s.profiles.GetAggregate(ctx, accountID, ""); err != nil {
		return err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	if err := s.profiles.Create(ctx, &model.Profile{
		ID:        id,
		AccountID: accountID,
		Language:  language,
	}); err != nil && !errors.Is(err, errs.ErrAlreadyExists) {
		return err
	}
	return s.profiles.Update(ctx, accountID, language, upd)
}

// PatchProfile applies a partial update inside one transaction, then
// invalidates the cache key post-commit.
func (s *ProfileServiceImpl) PatchProfile(ctx context.Context, username, language string, patch *model.ProfilePatch) (bool, error) {
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.profiles.Patch(ctx, a.ID, language, patch); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	s.store.Remove(ctx, cache.ProfileKey(username, language))
	return true, nil
}

// GetExportData bundles the account's public identity with its mapped base
// profile. tokenValue must be a currently valid session token supplied by the
// caller; it is embedded as-is.
func (s *ProfileServiceImpl) GetExportData(ctx context.Context, account *model.Account, tokenValue string) (*model.ExportData, error) {
	p, err := s.GetProfile(ctx, account.Username, "")
	if err != nil {
		return nil, err
	}
	return &model.ExportData{
		Username: account.Username,
		Role:     account.Role,
		Token:    tokenValue,
		Profile:  p,
	}, nil
}

// ImportData verifies the embedded username matches the target (ignoring
// case) and replays the bundled profile as a full update.
func (s *ProfileServiceImpl) ImportData(ctx context.Context, username string, data *model.ExportData) (bool, error) {
	if data == nil || data.Profile == nil {
		return false, errs.ErrImportMismatch
	}
	if !strings.EqualFold(strings.TrimSpace(data.Username), strings.TrimSpace(username)) {
		return false, errs.ErrImportMismatch
	}

	p := data.Profile
	upd := &model.ProfileUpdate{
		Nickname:   p.Nickname,
		Pronouns:   p.Pronouns,
		Bio:        p.Bio,
		Location:   p.Location,
		Website:    p.Website,
		Avatar:     p.Avatar,
		Background: p.Background,
		Company:    p.Company,
		Title:      p.Title,
		School:     p.School,
		Major:      p.Major,
		Contacts:   p.Contacts,
		Links:      p.Links,
		Projects:   p.Projects,
		Work:       p.Work,
		Schools:    p.Schools,
		Gallery:    p.Gallery,
	}
	return s.UpdateProfile(ctx, username, p.Language, upd)
}
