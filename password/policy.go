package password

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrTooWeak is wrapped by every policy violation.
var ErrTooWeak = errors.New("password does not meet strength requirements")

// Policy describes the character classes a password must contain.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPolicy requires eight characters with upper, lower, digit and
// special characters.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Check returns nil when plain satisfies p, or an error wrapping ErrTooWeak.
func (p Policy) Check(plain string) error {
	if n := len([]rune(plain)); n < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrTooWeak, p.MinLength)
	}

	var upper, lower, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if (p.RequireUpper && !upper) || (p.RequireLower && !lower) ||
		(p.RequireDigit && !digit) || (p.RequireSpecial && !special) {
		return fmt.Errorf("%w: must contain at least one uppercase letter, one lowercase letter, one number, and one special character", ErrTooWeak)
	}
	return nil
}
