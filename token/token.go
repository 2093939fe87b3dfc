package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

var (
	// ErrExpired is returned when the current time is at or past the expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed covers undecodable tokens, bad signatures and unexpected algorithms.
	ErrMalformed = errors.New("invalid token")
	// ErrWrongKind is returned when the kind tag differs from the expected kind.
	ErrWrongKind = errors.New("invalid token type")
	// ErrWrongAudience is returned on issuer or audience mismatch.
	ErrWrongAudience = errors.New("token issuer or audience mismatch")
	// ErrNotYetValid is returned when the token is used before nbf or iat.
	ErrNotYetValid = errors.New("token not active")
)

// Subject is the identity data embedded in a token.
type Subject struct {
	ID          string
	Username    string
	Email       string
	Role        string
	Permissions []string
}

// Claims is the JWT payload shared by access and refresh tokens.
type Claims struct {
	Kind        Kind     `json:"kind"`
	Username    string   `json:"username,omitempty"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Subject reconstructs the embedded subject.
func (c *Claims) Subject() Subject {
	perms := make([]string, len(c.Permissions))
	copy(perms, c.Permissions)
	return Subject{
		ID:          c.RegisteredClaims.Subject,
		Username:    c.Username,
		Email:       c.Email,
		Role:        c.Role,
		Permissions: perms,
	}
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrWrongKind):
		return ErrWrongKind
	case errors.Is(err, errMissingKind):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrWrongAudience
	default:
		return ErrMalformed
	}
}

var errMissingKind = errors.New("missing kind claim")
