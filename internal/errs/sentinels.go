// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials indicates a failed login. Unknown username,
	// wrong password and malformed stored hash all collapse to this one
	// signal so callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates an unknown or expired session token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrForbidden indicates the account lacks the required role.
	ErrForbidden = errors.New("forbidden")

	// ErrRootProtected indicates an attempt to delete the root account or to
	// create one outside the bootstrap path.
	ErrRootProtected = errors.New("root account is protected")

	// ErrImportMismatch indicates an import bundle whose embedded username
	// does not match the target account.
	ErrImportMismatch = errors.New("import username mismatch")
)
