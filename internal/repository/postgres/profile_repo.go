package postgres

import (
	"context"
	"errors"

	"github.com/and161185/bio-card/internal/errs"
	"github.com/and161185/bio-card/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
//
// Language variant policy: the base profile is stored with language=NULL and
// addressed with an empty string; every variant owns its child collections
// independently.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// langArg maps the empty variant tag to NULL for storage.
func langArg(language string) any {
	if language == "" {
		return nil
	}
	return language
}

const insertProfileSQL = `
INSERT INTO profiles (id, account_id, language, nickname, pronouns, bio, location, website,
  avatar, background, company, title, school, major)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

// Create inserts a new profile row with the given scalars (children start empty).
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	_, err := r.db.Pool.Exec(ctx, insertProfileSQL,
		p.ID, p.AccountID, langArg(p.Language),
		p.Nickname, p.Pronouns, p.Bio, p.Location, p.Website,
		p.Avatar.String(), p.Background.String(),
		p.Company, p.Title, p.School, p.Major)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetAggregate loads the profile row plus all six child collections.
func (r *ProfileRepo) GetAggregate(ctx context.Context, accountID uuid.UUID, language string) (*model.Profile, error) {
	const q = `
SELECT id, account_id, COALESCE(language,''), nickname, pronouns, bio, location, website,
  avatar, background, company, title, school, major
FROM profiles WHERE account_id=$1 AND COALESCE(language,'')=$2`
	row := r.db.Pool.QueryRow(ctx, q, accountID, language)

	var p model.Profile
	var avatar, background string
	if err := row.Scan(&p.ID, &p.AccountID, &p.Language,
		&p.Nickname, &p.Pronouns, &p.Bio, &p.Location, &p.Website,
		&avatar, &background, &p.Company, &p.Title, &p.School, &p.Major); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.Avatar = model.ParseAsset(avatar)
	p.Background = model.ParseAsset(background)

	if err := r.loadChildren(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) loadChildren(ctx context.Context, p *model.Profile) error {
	const qContacts = `
SELECT id, profile_id, position, platform, value
FROM contacts WHERE profile_id=$1 ORDER BY position ASC`
	rows, err := r.db.Pool.Query(ctx, qContacts, p.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var c model.Contact
		if err = rows.Scan(&c.ID, &c.ProfileID, &c.Position, &c.Platform, &c.Value); err != nil {
			rows.Close()
			return err
		}
		p.Contacts = append(p.Contacts, c)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	const qLinks = `
SELECT id, profile_id, position, platform, url, attributes
FROM social_links WHERE profile_id=$1 ORDER BY position ASC`
	rows, err = r.db.Pool.Query(ctx, qLinks, p.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var l model.SocialLink
		var attrs []byte
		if err = rows.Scan(&l.ID, &l.ProfileID, &l.Position, &l.Platform, &l.URL, &attrs); err != nil {
			rows.Close()
			return err
		}
		l.Attributes = attrs
		p.Links = append(p.Links, l)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	const qProjects = `
SELECT id, profile_id, position, name, description, url
FROM projects WHERE profile_id=$1 ORDER BY position ASC`
	rows, err = r.db.Pool.Query(ctx, qProjects, p.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var pr model.Project
		if err = rows.Scan(&pr.ID, &pr.ProfileID, &pr.Position, &pr.Name, &pr.Description, &pr.URL); err != nil {
			rows.Close()
			return err
		}
		p.Projects = append(p.Projects, pr)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	const qWork = `
SELECT id, profile_id, position, company, title, start_at, end_at, description
FROM work_experiences WHERE profile_id=$1 ORDER BY position ASC`
	rows, err = r.db.Pool.Query(ctx, qWork, p.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var w model.WorkExperience
		if err = rows.Scan(&w.ID, &w.ProfileID, &w.Position, &w.Company, &w.Title, &w.Start, &w.End, &w.Description); err != nil {
			rows.Close()
			return err
		}
		p.Work = append(p.Work, w)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	const qSchools = `
SELECT id, profile_id, position, school, degree, start_at, end_at, description
FROM school_experiences WHERE profile_id=$1 ORDER BY position ASC`
	rows, err = r.db.Pool.Query(ctx, qSchools, p.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var s model.SchoolExperience
		if err = rows.Scan(&s.ID, &s.ProfileID, &s.Position, &s.School, &s.Degree, &s.Start, &s.End, &s.Description); err != nil {
			rows.Close()
			return err
		}
		p.Schools = append(p.Schools, s)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	const qGallery = `
SELECT id, profile_id, position, image, caption
FROM gallery_items WHERE profile_id=$1 ORDER BY position ASC`
	rows, err = r.db.Pool.Query(ctx, qGallery, p.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var g model.GalleryItem
		var image string
		if err = rows.Scan(&g.ID, &g.ProfileID, &g.Position, &image, &g.Caption); err != nil {
			rows.Close()
			return err
		}
		g.Image = model.ParseAsset(image)
		p.Gallery = append(p.Gallery, g)
	}
	rows.Close()
	return rows.Err()
}

// Update replaces the profile's scalars and all six collections atomically.
// The delete of each collection completes before its re-insert begins, and the
// whole sequence commits as one transaction.
func (r *ProfileRepo) Update(ctx context.Context, accountID uuid.UUID, language string, upd *model.ProfileUpdate) (err error) {
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

	const q = `
UPDATE profiles
SET nickname=$3, pronouns=$4, bio=$5, location=$6, website=$7,
    avatar=$8, background=$9, company=$10, title=$11, school=$12, major=$13
WHERE account_id=$1 AND COALESCE(language,'')=$2
RETURNING id`
	var profileID uuid.UUID
	if err = tx.QueryRow(ctx, q, accountID, language,
		upd.Nickname, upd.Pronouns, upd.Bio, upd.Location, upd.Website,
		upd.Avatar.String(), upd.Background.String(),
		upd.Company, upd.Title, upd.School, upd.Major).Scan(&profileID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return err
	}

	if err = replaceContacts(ctx, tx, profileID, upd.Contacts); err != nil {
		return err
	}
	if err = replaceLinks(ctx, tx, profileID, upd.Links); err != nil {
		return err
	}
	if err = replaceProjects(ctx, tx, profileID, upd.Projects); err != nil {
		return err
	}
	if err = replaceWork(ctx, tx, profileID, upd.Work); err != nil {
		return err
	}
	if err = replaceSchools(ctx, tx, profileID, upd.Schools); err != nil {
		return err
	}
	return replaceGallery(ctx, tx, profileID, upd.Gallery)
}

// Patch applies only the provided fields and collections atomically. Absent
// (nil) fields are left untouched; a present-but-empty collection clears it.
func (r *ProfileRepo) Patch(ctx context.Context, accountID uuid.UUID, language string, patch *model.ProfilePatch) (err error) {
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

	// NULL args keep the current column value
	const q = `
UPDATE profiles
SET nickname=COALESCE($3, nickname), pronouns=COALESCE($4, pronouns),
    bio=COALESCE($5, bio), location=COALESCE($6, location),
    website=COALESCE($7, website), avatar=COALESCE($8, avatar),
    background=COALESCE($9, background), company=COALESCE($10, company),
    title=COALESCE($11, title), school=COALESCE($12, school),
    major=COALESCE($13, major)
WHERE account_id=$1 AND COALESCE(language,'')=$2
RETURNING id`
	var profileID uuid.UUID
	if err = tx.QueryRow(ctx, q, accountID, language,
		patch.Nickname, patch.Pronouns, patch.Bio, patch.Location, patch.Website,
		assetArg(patch.Avatar), assetArg(patch.Background),
		patch.Company, patch.Title, patch.School, patch.Major).Scan(&profileID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return err
	}

	if patch.Contacts != nil {
		if err = replaceContacts(ctx, tx, profileID, *patch.Contacts); err != nil {
			return err
		}
	}
	if patch.Links != nil {
		if err = replaceLinks(ctx, tx, profileID, *patch.Links); err != nil {
			return err
		}
	}
	if patch.Projects != nil {
		if err = replaceProjects(ctx, tx, profileID, *patch.Projects); err != nil {
			return err
		}
	}
	if patch.Work != nil {
		if err = replaceWork(ctx, tx, profileID, *patch.Work); err != nil {
			return err
		}
	}
	if patch.Schools != nil {
		if err = replaceSchools(ctx, tx, profileID, *patch.Schools); err != nil {
			return err
		}
	}
	if patch.Gallery != nil {
		return replaceGallery(ctx, tx, profileID, *patch.Gallery)
	}
	return nil
}

// ListLanguages returns the variant tags of the account's profiles.
func (r *ProfileRepo) ListLanguages(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	const q = `SELECT COALESCE(language,'') FROM profiles WHERE account_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var lang string
		if err = rows.Scan(&lang); err != nil {
			return nil, err
		}
		out = append(out, lang)
	}
	return out, rows.Err()
}

func assetArg(a *model.Asset) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}

func childID(id uuid.UUID) (uuid.UUID, error) {
	if id != uuid.Nil {
		return id, nil
	}
	return uuid.NewV4()
}

func replaceContacts(ctx context.Context, tx pgx.Tx, profileID uuid.UUID, items []model.Contact) error {
	if _, err := tx.Exec(ctx, `DELETE FROM contacts WHERE profile_id=$1`, profileID); err != nil {
		return err
	}
	const ins = `INSERT INTO contacts (id, profile_id, position, platform, value) VALUES ($1,$2,$3,$4,$5)`
	for i, it := range items {
		id, err := childID(it.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, ins, id, profileID, i, it.Platform, it.Value); err != nil {
			return err
		}
	}
	return nil
}

func replaceLinks(ctx context.Context, tx pgx.Tx, profileID uuid.UUID, items []model.SocialLink) error {
	if _, err := tx.Exec(ctx, `DELETE FROM social_links WHERE profile_id=$1`, profileID); err != nil {
		return err
	}
	const ins = `INSERT INTO social_links (id, profile_id, position, platform, url, attributes) VALUES ($1,$2,$3,$4,$5,$6)`
	for i, it := range items {
		id, err := childID(it.ID)
		if err != nil {
			return err
		}
		var attrs []byte
		if len(it.Attributes) > 0 {
			attrs = it.Attributes
		}
		if _, err := tx.Exec(ctx, ins, id, profileID, i, it.Platform, it.URL, attrs); err != nil {
			return err
		}
	}
	return nil
}

func replaceProjects(ctx context.Context, tx pgx.Tx, profileID uuid.UUID, items []model.Project) error {
	if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE profile_id=$1`, profileID); err != nil {
		return err
	}
	const ins = `INSERT INTO projects (id, profile_id, position, name, description, url) VALUES ($1,$2,$3,$4,$5,$6)`
	for i, it := range items {
		id, err := childID(it.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, ins, id, profileID, i, it.Name, it.Description, it.URL); err != nil {
			return err
		}
	}
	return nil
}

func replaceWork(ctx context.Context, tx pgx.Tx, profileID uuid.UUID, items []model.WorkExperience) error {
	if _, err := tx.Exec(ctx, `DELETE FROM work_experiences WHERE profile_id=$1`, profileID); err != nil {
		return err
	}
	const ins = `INSERT INTO work_experiences (id, profile_id, position, company, title, start_at, end_at, description) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for i, it := range items {
		id, err := childID(it.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, ins, id, profileID, i, it.Company, it.Title, it.Start, it.End, it.Description); err != nil {
			return err
		}
	}
	return nil
}

func replaceSchools(ctx context.Context, tx pgx.Tx, profileID uuid.UUID, items []model.SchoolExperience) error {
	if _, err := tx.Exec(ctx, `DELETE FROM school_experiences WHERE profile_id=$1`, profileID); err != nil {
		return err
	}
	const ins = `INSERT INTO school_experiences (id, profile_id, position, school, degree, start_at, end_at, description) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for i, it := range items {
		id, err := childID(it.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, ins, id, profileID, i, it.School, it.Degree, it.Start, it.End, it.Description); err != nil {
			return err
		}
	}
	return nil
}

func replaceGallery(ctx context.Context, tx pgx.Tx, profileID uuid.UUID, items []model.GalleryItem) error {
	if _, err := tx.Exec(ctx, `DELETE FROM gallery_items WHERE profile_id=$1`, profileID); err != nil {
		return err
	}
	const ins = `INSERT INTO gallery_items (id, profile_id, position, image, caption) VALUES ($1,$2,$3,$4,$5)`
	for i, it := range items {
		id, err := childID(it.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, ins, id, profileID, i, it.Image.String(), it.Caption); err != nil {
			return err
		}
	}
	return nil
}
