package token

import (
	"time"

	"github.com/juju/clock"
)

// DefaultRefreshWarning is the time-to-expiry below which a refresh is suggested.
const DefaultRefreshWarning = 5 * time.Minute

// Verification is the outcome of a successful Verify.
type Verification struct {
	Claims    *Claims
	Subject   Subject
	ExpiresAt time.Time
	// RefreshSuggested is advisory only; the token is still valid.
	RefreshSuggested bool
}

// Verifier wraps a Codec with the advisory refresh hint.
type Verifier struct {
	codec   *Codec
	clock   clock.Clock
	warning time.Duration
}

// NewVerifier returns a Verifier over codec. A non-positive warning selects
// DefaultRefreshWarning.
func NewVerifier(codec *Codec, warning time.Duration) *Verifier {
	if warning <= 0 {
		warning = DefaultRefreshWarning
	}
	return &Verifier{codec: codec, clock: codec.config.Clock, warning: warning}
}

// Verify checks raw as a token of the expected kind. Failures are exactly one
// of ErrExpired, ErrMalformed, ErrWrongKind, ErrWrongAudience or ErrNotYetValid.
func (v *Verifier) Verify(raw string, expected Kind) (*Verification, error) {
	claims, err := v.codec.Parse(raw, expected)
	if err != nil {
		return nil, err
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Verification{
		Claims:           claims,
		Subject:          claims.Subject(),
		ExpiresAt:        expiresAt,
		RefreshSuggested: expiresAt.Sub(v.clock.Now()) < v.warning,
	}, nil
}
