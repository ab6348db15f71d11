// Package crypto implements server-side password hashing, verification and
// session token generation.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32

	// SaltLen is the per-password salt size in bytes.
	SaltLen = 16

	// tokenLen is the raw entropy of a session token in bytes (256 bits).
	tokenLen = 32
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewSalt returns a fresh random password salt.
func NewSalt() ([]byte, error) { return RandBytes(SaltLen) }

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword verifies password against expected Argon2id hash and salt.
// Malformed stored material (empty or truncated salt/hash) fails closed.
func VerifyPassword(password, salt, expected []byte) bool {
	if len(salt) != SaltLen || len(expected) != int(argonKeyLen) {
		return false
	}
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// NewTokenValue returns an opaque, unguessable session token value.
func NewTokenValue() (string, error) {
	b, err := RandBytes(tokenLen)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
