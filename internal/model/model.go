// Package model defines domain entities used by services and repositories.
package model

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the permission level of an account.
type Role string

// Known roles. Exactly one root account is expected per installation.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleRoot  Role = "root"
)

// IsAdmin reports whether the role grants administrative operations.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleRoot }

// Account represents an authentication identity stored on the server.
type Account struct {
	ID          uuid.UUID // PK
	Username    string    // unique, matched exactly as stored
	PwdHash     []byte    // Argon2id(password, PwdSalt)
	PwdSalt     []byte    // per-account salt
	Role        Role
	CreatedAt   time.Time
	LastLoginAt time.Time
}

// Token is an opaque bearer session credential persisted as a row.
type Token struct {
	Value      string    // unique random value, >=256 bits entropy
	AccountID  uuid.UUID // FK -> accounts.id
	Device     string    // optional device/context label
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time // fixed horizon from creation
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *Token) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }

// Profile is the public card aggregate for one (account, language) pair.
// The base profile has an empty Language and is the one resolved by
// username-only lookups. Each language variant owns independent child
// collections.
type Profile struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Language  string // empty = base/default variant (stored as NULL)

	Nickname   string `json:"nickname"`
	Pronouns   string `json:"pronouns"`
	Bio        string `json:"bio"`
	Location   string `json:"location"`
	Website    string `json:"website"`
	Avatar     Asset  `json:"avatar"`
	Background Asset  `json:"background"`
	Company    string `json:"company"`
	Title      string `json:"title"`
	School     string `json:"school"`
	Major      string `json:"major"`

	Contacts []Contact          `json:"contacts"`
	Links    []SocialLink       `json:"links"`
	Projects []Project          `json:"projects"`
	Work     []WorkExperience   `json:"work"`
	Schools  []SchoolExperience `json:"schools"`
	Gallery  []GalleryItem      `json:"gallery"`
}

// Contact is one way to reach the profile owner (email, phone, IM handle).
type Contact struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"-"`
	Position  int       `json:"position"`
	Platform  string    `json:"platform"`
	Value     string    `json:"value"`
}

// SocialLink points at an external presence. Attributes carries an opaque
// per-platform JSON blob (e.g. GitHub stats) decoded only by consumers that
// recognize the platform; a malformed blob must never break a profile read.
type SocialLink struct {
	ID         uuid.UUID       `json:"id"`
	ProfileID  uuid.UUID       `json:"-"`
	Position   int             `json:"position"`
	Platform   string          `json:"platform"`
	URL        string          `json:"url"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// Project is a showcased piece of work.
type Project struct {
	ID          uuid.UUID `json:"id"`
	ProfileID   uuid.UUID `json:"-"`
	Position    int       `json:"position"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
}

// WorkExperience is one employment entry.
type WorkExperience struct {
	ID          uuid.UUID `json:"id"`
	ProfileID   uuid.UUID `json:"-"`
	Position    int       `json:"position"`
	Company     string    `json:"company"`
	Title       string    `json:"title"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Description string    `json:"description"`
}

// SchoolExperience is one education entry.
type SchoolExperience struct {
	ID          uuid.UUID `json:"id"`
	ProfileID   uuid.UUID `json:"-"`
	Position    int       `json:"position"`
	School      string    `json:"school"`
	Degree      string    `json:"degree"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Description string    `json:"description"`
}

// GalleryItem is one image in the profile gallery.
type GalleryItem struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"-"`
	Position  int       `json:"position"`
	Image     Asset     `json:"image"`
	Caption   string    `json:"caption"`
}

// ProfileUpdate is a full replacement of a profile's scalars and collections.
type ProfileUpdate struct {
	Nickname   string
	Pronouns   string
	Bio        string
	Location   string
	Website    string
	Avatar     Asset
	Background Asset
	Company    string
	Title      string
	School     string
	Major      string

	Contacts []Contact
	Links    []SocialLink
	Projects []Project
	Work     []WorkExperience
	Schools  []SchoolExperience
	Gallery  []GalleryItem
}

// ProfilePatch is a partial profile update. A nil field is left untouched; a
// non-nil field overwrites, including a pointer to an empty collection which
// clears it. "Not sent" and "sent as empty" are different things.
type ProfilePatch struct {
	Nickname   *string
	Pronouns   *string
	Bio        *string
	Location   *string
	Website    *string
	Avatar     *Asset
	Background *Asset
	Company    *string
	Title      *string
	School     *string
	Major      *string

	Contacts *[]Contact
	Links    *[]SocialLink
	Projects *[]Project
	Work     *[]WorkExperience
	Schools  *[]SchoolExperience
	Gallery  *[]GalleryItem
}

// Settings is the singleton system branding row.
type Settings struct {
	Title string `json:"title"`
	Logo  Asset  `json:"logo"`
}

// ExportData bundles an account's public identity with its mapped profile.
// Token is a currently valid session token supplied by the caller.
type ExportData struct {
	Username string   `json:"username"`
	Role     Role     `json:"role"`
	Token    string   `json:"token,omitempty"`
	Profile  *Profile `json:"profile"`
}
