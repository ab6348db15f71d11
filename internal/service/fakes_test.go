package service

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/gofrs/uuid/v5"
)

// In-memory fakes for the repository interfaces.

type fakeAccounts struct {
	mu           sync.Mutex
	byID         map[uuid.UUID]*model.Account
	profiles     *fakeProfiles
	lastLoginErr error
}

func newFakeAccounts(profiles *fakeProfiles) *fakeAccounts {
	return &fakeAccounts{byID: map[uuid.UUID]*model.Account{}, profiles: profiles}
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.Username == a.Username {
			return errs.ErrAlreadyExists
		}
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAccounts) CreateWithProfile(ctx context.Context, a *model.Account, p *model.Profile) error {
	if err := f.Create(ctx, a); err != nil {
		return err
	}
	return f.profiles.Create(ctx, p)
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeAccounts) List(_ context.Context) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Account, 0, len(f.byID))
	for _, a := range f.byID {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAccounts) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	a, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.LastLoginAt = at
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id uuid.UUID, hash, salt []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.PwdHash = hash
	a.PwdSalt = salt
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeTokens struct {
	mu       sync.Mutex
	byValue  map[string]*model.Token
	order    []string
	touchErr error
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byValue: map[string]*model.Token{}}
}

func (f *fakeTokens) Insert(_ context.Context, t *model.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.byValue[t.Value] = &cp
	f.order = append(f.order, t.Value)
	return nil
}

func (f *fakeTokens) GetByValue(_ context.Context, value string) (*model.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byValue[value]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) Touch(_ context.Context, value string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	if t, ok := f.byValue[value]; ok {
		t.LastUsedAt = at
	}
	return nil
}

func (f *fakeTokens) Delete(_ context.Context, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byValue, value)
	return nil
}

func (f *fakeTokens) DeleteForAccount(_ context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for v, t := range f.byValue {
		if t.AccountID == accountID {
			delete(f.byValue, v)
		}
	}
	return nil
}

// EvictOldest drops the account's expired rows plus its earliest-created live
// token, insertion order breaking creation-time ties.
func (f *fakeTokens) EvictOldest(_ context.Context, accountID uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest string
	for _, v := range f.order {
		t, ok := f.byValue[v]
		if !ok || t.AccountID != accountID {
			continue
		}
		if t.Expired(now) {
			delete(f.byValue, v)
			continue
		}
		if oldest == "" || t.CreatedAt.Before(f.byValue[oldest].CreatedAt) {
			oldest = v
		}
	}
	if oldest != "" {
		delete(f.byValue, oldest)
	}
	return nil
}

func (f *fakeTokens) CountLive(_ context.Context, accountID uuid.UUID, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.byValue {
		if t.AccountID == accountID && !t.Expired(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for v, t := range f.byValue {
		if t.Expired(now) {
			delete(f.byValue, v)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) count(accountID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.byValue {
		if t.AccountID == accountID {
			n++
		}
	}
	return n
}

type profileKey struct {
	accountID uuid.UUID
	language  string
}

type fakeProfiles struct {
	mu        sync.Mutex
	byKey     map[profileKey]*model.Profile
	loads     int
	lastPatch *model.ProfilePatch
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byKey: map[profileKey]*model.Profile{}}
}

func (f *fakeProfiles) Create(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := profileKey{p.AccountID, p.Language}
	if _, ok := f.byKey[k]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *p
	f.byKey[k] = &cp
	return nil
}

func (f *fakeProfiles) GetAggregate(_ context.Context, accountID uuid.UUID, language string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	p, ok := f.byKey[profileKey{accountID, language}]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Update(_ context.Context, accountID uuid.UUID, language string, upd *model.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byKey[profileKey{accountID, language}]
	if !ok {
		return errs.ErrNotFound
	}
	p.Nickname = upd.Nickname
	p.Pronouns = upd.Pronouns
	p.Bio = upd.Bio
	p.Location = upd.Location
	p.Website = upd.Website
	p.Avatar = upd.Avatar
	p.Background = upd.Background
	p.Company = upd.Company
	p.Title = upd.Title
	p.School = upd.School
	p.Major = upd.Major
	p.Contacts = upd.Contacts
	p.Links = upd.Links
	p.Projects = upd.Projects
	p.Work = upd.Work
	p.Schools = upd.Schools
	p.Gallery = upd.Gallery
	return nil
}

func (f *fakeProfiles) Patch(_ context.Context, accountID uuid.UUID, language string, patch *model.ProfilePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byKey[profileKey{accountID, language}]
	if !ok {
		return errs.ErrNotFound
	}
	f.lastPatch = patch
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.Nickname != nil {
		p.Nickname = *patch.Nickname
	}
	if patch.Contacts != nil {
		p.Contacts = *patch.Contacts
	}
	return nil
}

func (f *fakeProfiles) ListLanguages(_ context.Context, accountID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.byKey {
		if k.accountID == accountID {
			out = append(out, k.language)
		}
	}
	return out, nil
}

func (f *fakeProfiles) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

type fakeSettings struct {
	mu      sync.Mutex
	stored  *model.Settings
	gets    int
	upserts int
}

func (f *fakeSettings) Get(_ context.Context) (*model.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.stored == nil {
		return nil, errs.ErrNotFound
	}
	cp := *f.stored
	return &cp, nil
}

func (f *fakeSettings) Upsert(_ context.Context, s *model.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	cp := *s
	f.stored = &cp
	return nil
}
