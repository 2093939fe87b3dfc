// Package google verifies Google Sign-In ID tokens and implements
// authgate.IdentityProvider.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authgate"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var _ authgate.IdentityProvider = (*Provider)(nil)

// Validator checks an ID token's signature, expiry and audience.
// *idtoken.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// Provider accepts ID tokens issued to ClientID.
type Provider struct {
	clientID  string
	validator Validator
}

// New returns a Provider that validates against Google's published keys.
func New(ctx context.Context, clientID string, opts ...option.ClientOption) (*Provider, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("google client id is required")
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google id token validator: %w", err)
	}
	return &Provider{clientID: clientID, validator: v}, nil
}

// NewWithValidator returns a Provider using v.
func NewWithValidator(clientID string, v Validator) *Provider {
	return &Provider{clientID: clientID, validator: v}
}

var validIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// VerifyCredential validates idToken and returns the asserted profile.
// Tokens without a verified email are rejected.
func (p *Provider) VerifyCredential(ctx context.Context, idToken string) (*authgate.ProviderProfile, error) {
	payload, err := p.validator.Validate(ctx, idToken, p.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authgate.ErrProviderCredentialInvalid, err)
	}
	if !validIssuers[payload.Issuer] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", authgate.ErrProviderCredentialInvalid, payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: token carries no email", authgate.ErrProviderCredentialInvalid)
	}
	if !emailVerified(payload.Claims["email_verified"]) {
		return nil, fmt.Errorf("%w: email not verified", authgate.ErrProviderCredentialInvalid)
	}
	name, _ := payload.Claims["name"].(string)

	return &authgate.ProviderProfile{
		SubjectID: payload.Subject,
		Email:     email,
		Name:      name,
	}, nil
}

// email_verified arrives as a bool, or as a string in older tokens.
func emailVerified(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}
