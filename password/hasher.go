package password

import (
	"errors"
	"strings"
)

// DefaultMaxPasswordBytes bounds the plaintext accepted by the hashers.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrTooLong is returned for plaintext longer than the hasher accepts.
	ErrTooLong = errors.New("password too long")
	// ErrUnknownFormat is returned when no hasher recognizes a stored hash.
	ErrUnknownFormat = errors.New("unrecognized password hash format")
	// ErrMalformedHash is returned for a stored hash of a known format that
	// cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrEmpty is returned when hashing an empty password.
	ErrEmpty = errors.New("password must not be empty")
)

// Hasher hashes plaintext and verifies plaintext against a stored hash.
// Verify returns (false, nil) on mismatch and an error only for unusable
// input.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// Multi hashes with Primary and verifies with whichever hasher owns the
// stored format.
type Multi struct {
	Primary Hasher
	Bcrypt  *Bcrypt
	Argon2  *Argon2
}

// Hash implements Hasher.
func (m *Multi) Hash(plain string) (string, error) {
	return m.Primary.Hash(plain)
}

// Verify implements Hasher.
func (m *Multi) Verify(plain, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$2") && m.Bcrypt != nil:
		return m.Bcrypt.Verify(plain, encoded)
	case strings.HasPrefix(encoded, "$"+algorithmID+"$") && m.Argon2 != nil:
		return m.Argon2.Verify(plain, encoded)
	default:
		return false, ErrUnknownFormat
	}
}

// NeedsUpgrade reports whether encoded should be rehashed with Primary:
// either another algorithm produced it or Primary's parameters are stronger.
func (m *Multi) NeedsUpgrade(encoded string) (bool, error) {
	switch p := m.Primary.(type) {
	case *Bcrypt:
		if !strings.HasPrefix(encoded, "$2") {
			return m.recognized(encoded)
		}
		return p.NeedsUpgrade(encoded)
	case *Argon2:
		if !strings.HasPrefix(encoded, "$"+algorithmID+"$") {
			return m.recognized(encoded)
		}
		return p.NeedsUpgrade(encoded)
	default:
		return false, nil
	}
}

// recognized reports whether a non-primary hasher owns encoded.
func (m *Multi) recognized(encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$2") && m.Bcrypt != nil:
		return true, nil
	case strings.HasPrefix(encoded, "$"+algorithmID+"$") && m.Argon2 != nil:
		return true, nil
	default:
		return false, ErrUnknownFormat
	}
}
