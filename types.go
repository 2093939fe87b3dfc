package authgate

import (
	"context"
	"io"
	"time"

	"github.com/MrEthical07/authgate/access"
	internalaudit "github.com/MrEthical07/authgate/internal/audit"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID       string
	Username string
	Email    string
	Role     access.Role
	// Permissions is populated for guests only.
	Permissions access.PermissionSet
	Guest       bool
}

// Subject converts the identity into the form the access Guard checks.
func (i *Identity) Subject() *access.Subject {
	if i == nil {
		return nil
	}
	return &access.Subject{
		ID:          i.ID,
		Role:        i.Role,
		Guest:       i.Guest,
		Permissions: i.Permissions,
	}
}

// UserRecord is a registered user as persisted by a UserStore.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         access.Role
	// RefreshTokenHash is the hex SHA-256 of the single active refresh
	// token, or empty when the user has none.
	RefreshTokenHash string
	CreatedAt        time.Time
}

// Identity returns the registered identity for r.
func (r *UserRecord) Identity() *Identity {
	return &Identity{ID: r.ID, Username: r.Username, Email: r.Email, Role: r.Role}
}

// NewUser is the input to UserStore.Create.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Role         access.Role
}

// UserStore persists registered users. Lookups return ErrUserNotFound for
// missing records; Create returns ErrAccountExists for a taken username.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	Create(ctx context.Context, user NewUser) (*UserRecord, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// UpdateRefreshToken overwrites the recorded refresh token hash; an
	// empty hash clears it.
	UpdateRefreshToken(ctx context.Context, id, tokenHash string) error
}

// PasswordHasher hashes and verifies passwords. Verify reports a mismatch
// as (false, nil).
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// ProviderProfile is the identity asserted by an IdentityProvider.
type ProviderProfile struct {
	SubjectID string
	Email     string
	Name      string
}

// IdentityProvider verifies an opaque federated credential. Rejected
// credentials yield an error wrapping ErrProviderCredentialInvalid.
type IdentityProvider interface {
	VerifyCredential(ctx context.Context, credential string) (*ProviderProfile, error)
}

// TokenPair is returned by Login, Refresh and LoginWithProvider. On Refresh
// RefreshToken is empty unless rotation is enabled.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Identity         *Identity
}

// GuestSession is returned by GuestLogin. Guests never receive a refresh token.
type GuestSession struct {
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   time.Duration
	Identity    *Identity
}

// Verification is the result of VerifyAccess.
type Verification struct {
	Identity  *Identity
	ExpiresAt time.Time
	// RefreshSuggested is advisory only.
	RefreshSuggested bool
}

// RegisterRequest is the input to Register.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an io.Writer.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes events through a logr.Logger.
type LogSink = internalaudit.LogSink

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
