package authgate

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/ratelimit"
	"github.com/MrEthical07/authgate/token"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/juju/clock"
)

const guestIDPrefix = "guest_"

// Engine runs the session lifecycle: login, guest login, refresh, logout,
// password change, federated login and registration, plus access token
// verification. Engine methods are safe for concurrent use.
type Engine struct {
	config       Config
	users        UserStore
	hasher       PasswordHasher
	policy       password.Policy
	provider     IdentityProvider
	codec        *token.Codec
	verifier     *token.Verifier
	loginLimiter ratelimit.Limiter
	clock        clock.Clock
	log          logr.Logger
	audit        *audit.Dispatcher
	metrics      *Metrics
	guestPerms   access.PermissionSet
	dummyHash    string
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil || e.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.audit.Close(ctx); err != nil {
		e.log.Error(err, "audit flush incomplete")
	}
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RecordRateLimitHit counts a request rejected by an API rate limiter.
func (e *Engine) RecordRateLimitHit() {
	e.metricInc(MetricRateLimitHit)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
LOGIN
====================================
*/

// Login authenticates a registered user and issues an access/refresh pair.
// Unknown users and wrong passwords both yield ErrInvalidCredentials. The
// new refresh token replaces any previously recorded one.
func (e *Engine) Login(ctx context.Context, username, plain string) (*TokenPair, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	username = strings.TrimSpace(username)

	if err := e.throttleLogin(ctx, username); err != nil {
		return nil, err
	}
	if username == "" || plain == "" {
		e.loginFailed(ctx, "", username, "empty_credentials")
		return nil, ErrInvalidCredentials
	}

	user, err := e.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		// Same hashing cost as the known-user path.
		_, _ = e.hasher.Verify(plain, e.dummyHash)
		e.loginFailed(ctx, "", username, "user_not_found")
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(plain, user.PasswordHash)
	if err != nil || !ok {
		e.loginFailed(ctx, user.ID, username, "password_mismatch")
		return nil, ErrInvalidCredentials
	}
	if e.config.Password.UpgradeOnLogin {
		e.upgradePasswordHash(ctx, user, plain)
	}

	pair, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, audit.TypeLogin, true, pair.Identity, nil, nil)
	return pair, nil
}

type hashUpgrader interface {
	NeedsUpgrade(encoded string) (bool, error)
}

// upgradePasswordHash is best-effort: failures are logged and the login
// proceeds with the old hash in place.
func (e *Engine) upgradePasswordHash(ctx context.Context, user *UserRecord, plain string) {
	up, ok := e.hasher.(hashUpgrader)
	if !ok {
		return
	}
	if needs, err := up.NeedsUpgrade(user.PasswordHash); err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		e.log.Error(err, "password hash upgrade failed", "userID", user.ID)
		return
	}
	if err := e.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		e.log.Error(err, "password hash upgrade not stored", "userID", user.ID)
		return
	}
	user.PasswordHash = hash
	e.log.V(1).Info("password hash upgraded", "userID", user.ID)
}

func (e *Engine) throttleLogin(ctx context.Context, username string) error {
	if e.loginLimiter == nil {
		return nil
	}
	key := "login:user:" + strings.ToLower(username)
	if ip := ClientIPFromContext(ctx); ip != "" {
		key = "login:ip:" + ip
	}

	err := e.loginLimiter.Allow(ctx, key, e.clock.Now())
	if err == nil {
		return nil
	}
	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, audit.TypeLoginRateLimited, false, nil, ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"identifier": username}
		})
		return &RateLimitError{RetryAfter: exceeded.RetryAfter}
	}
	return fmt.Errorf("login throttle: %w", err)
}

func (e *Engine) loginFailed(ctx context.Context, userID, username, reason string) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, audit.TypeLogin, false, &Identity{ID: userID, Username: username}, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

// issueSession signs both tokens for user and records the refresh hash.
func (e *Engine) issueSession(ctx context.Context, user *UserRecord) (*TokenPair, error) {
	sub := subjectFor(user)
	accessTok, err := e.codec.Issue(sub, token.KindAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshTok, err := e.codec.Issue(sub, token.KindRefresh, e.config.JWT.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := e.users.UpdateRefreshToken(ctx, user.ID, hashToken(refreshTok.Token)); err != nil {
		return nil, fmt.Errorf("record refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessTok.Token,
		RefreshToken:     refreshTok.Token,
		AccessExpiresAt:  accessTok.ExpiresAt,
		RefreshExpiresAt: refreshTok.ExpiresAt,
		Identity:         user.Identity(),
	}, nil
}

/*
====================================
GUEST
====================================
*/

// GuestLogin mints a fresh guest identity and an access token valid for the
// guest TTL. Guests are never persisted and never receive a refresh token.
func (e *Engine) GuestLogin(ctx context.Context) (*GuestSession, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Guest.Enabled {
		return nil, ErrForbidden
	}

	identity := &Identity{
		ID:          guestIDPrefix + uuid.NewString(),
		Username:    e.config.Guest.Username,
		Email:       e.config.Guest.Email,
		Role:        access.RoleGuest,
		Permissions: e.guestPerms,
		Guest:       true,
	}
	issued, err := e.codec.Issue(token.Subject{
		ID:          identity.ID,
		Username:    identity.Username,
		Email:       identity.Email,
		Role:        access.RoleGuest.String(),
		Permissions: e.guestPerms.Actions(),
	}, token.KindAccess, e.config.Guest.TTL)
	if err != nil {
		return nil, fmt.Errorf("issue guest token: %w", err)
	}

	e.metricInc(MetricGuestLogin)
	e.emitAudit(ctx, audit.TypeGuestLogin, true, identity, nil, nil)
	return &GuestSession{
		AccessToken: issued.Token,
		ExpiresAt:   issued.ExpiresAt,
		ExpiresIn:   issued.ExpiresAt.Sub(issued.IssuedAt),
		Identity:    identity,
	}, nil
}

/*
====================================
REFRESH / LOGOUT
====================================
*/

// Refresh exchanges a recorded refresh token for a new access token. With
// Session.RotateRefreshToken a new refresh token is issued as well and the
// presented one stops working.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrRefreshTokenMissing
	}

	res, err := e.verifier.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, audit.TypeRefresh, false, nil, err, nil)
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}

	user, err := e.users.FindByID(ctx, res.Subject.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.refreshRevoked(ctx, res.Subject.ID)
			return nil, ErrRefreshRevoked
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}
	presented := hashToken(refreshToken)
	if user.RefreshTokenHash == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshTokenHash)) != 1 {
		e.refreshRevoked(ctx, user.ID)
		return nil, ErrRefreshRevoked
	}

	var pair *TokenPair
	if e.config.Session.RotateRefreshToken {
		pair, err = e.issueSession(ctx, user)
		if err != nil {
			return nil, err
		}
	} else {
		accessTok, err := e.codec.Issue(subjectFor(user), token.KindAccess, e.config.JWT.AccessTTL)
		if err != nil {
			return nil, fmt.Errorf("issue access token: %w", err)
		}
		pair = &TokenPair{
			AccessToken:     accessTok.Token,
			AccessExpiresAt: accessTok.ExpiresAt,
			Identity:        user.Identity(),
		}
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, audit.TypeRefresh, true, pair.Identity, nil, nil)
	return pair, nil
}

func (e *Engine) refreshRevoked(ctx context.Context, userID string) {
	e.metricInc(MetricRefreshRevoked)
	e.emitAudit(ctx, audit.TypeRefresh, false, &Identity{ID: userID}, ErrRefreshRevoked, nil)
}

// Logout clears the recorded refresh token for identity. It is a no-op for
// guests and for users that no longer exist.
func (e *Engine) Logout(ctx context.Context, identity *Identity) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if identity == nil || identity.ID == "" {
		return access.ErrUnauthenticated
	}
	if identity.Guest {
		e.emitAudit(ctx, audit.TypeLogout, true, identity, nil, nil)
		return nil
	}

	if err := e.users.UpdateRefreshToken(ctx, identity.ID, ""); err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("logout: %w", err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, audit.TypeLogout, true, identity, nil, nil)
	return nil
}

/*
====================================
PASSWORDS / REGISTRATION
====================================
*/

// ChangePassword replaces the password of the registered identity. With
// Security.RevokeRefreshOnPasswordChange the recorded refresh token is
// cleared as well.
func (e *Engine) ChangePassword(ctx context.Context, identity *Identity, current, next string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if identity == nil || identity.ID == "" {
		return access.ErrUnauthenticated
	}
	if identity.Guest {
		return ErrForbidden
	}

	fail := func(err error) error {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, audit.TypePasswordChange, false, identity, err, nil)
		return err
	}

	if current == "" || next == "" {
		return fail(fmt.Errorf("%w: current password and new password are required", ErrInvalidInput))
	}
	if err := e.policy.Check(next); err != nil {
		return fail(err)
	}

	user, err := e.users.FindByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fail(ErrUserNotFound)
		}
		return fmt.Errorf("change password: %w", err)
	}
	if ok, err := e.hasher.Verify(current, user.PasswordHash); err != nil || !ok {
		return fail(ErrWrongCurrentPassword)
	}
	if same, err := e.hasher.Verify(next, user.PasswordHash); err == nil && same {
		return fail(ErrPasswordReuse)
	}

	hash, err := e.hasher.Hash(next)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrPasswordTooWeak, err))
	}
	if err := e.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if e.config.Security.RevokeRefreshOnPasswordChange {
		if err := e.users.UpdateRefreshToken(ctx, user.ID, ""); err != nil {
			return fmt.Errorf("change password: revoke refresh token: %w", err)
		}
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, audit.TypePasswordChange, true, identity, nil, nil)
	return nil
}

// Register creates a registered user with role user.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if err := e.policy.Check(req.Password); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}
	user, err := e.users.Create(ctx, NewUser{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         access.RoleUser,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, audit.TypeRegister, false, &Identity{Username: username}, err, nil)
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	identity := user.Identity()
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, audit.TypeRegister, true, identity, nil, nil)
	return identity, nil
}

/*
====================================
FEDERATED LOGIN
====================================
*/

// LoginWithProvider verifies a federated credential, finds or creates the
// registered user with the asserted email, and logs them in.
func (e *Engine) LoginWithProvider(ctx context.Context, credential string) (*TokenPair, *Identity, error) {
	if e == nil || e.users == nil {
		return nil, nil, ErrEngineNotReady
	}
	if e.provider == nil {
		return nil, nil, ErrProviderNotConfigured
	}
	if strings.TrimSpace(credential) == "" {
		return nil, nil, fmt.Errorf("%w: missing provider credential", ErrInvalidInput)
	}

	profile, err := e.provider.VerifyCredential(ctx, credential)
	if err != nil || profile == nil || profile.Email == "" {
		e.metricInc(MetricProviderLoginFailure)
		e.emitAudit(ctx, audit.TypeProviderLogin, false, nil, ErrProviderCredentialInvalid, nil)
		if err != nil && !errors.Is(err, ErrProviderCredentialInvalid) {
			e.log.V(1).Info("provider rejected credential", "error", err.Error())
		}
		return nil, nil, ErrProviderCredentialInvalid
	}

	user, err := e.users.FindByEmail(ctx, profile.Email)
	if errors.Is(err, ErrUserNotFound) {
		user, err = e.createProviderUser(ctx, profile)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("provider login: %w", err)
	}

	pair, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	e.metricInc(MetricProviderLoginSuccess)
	e.emitAudit(ctx, audit.TypeProviderLogin, true, pair.Identity, nil, func() map[string]string {
		return map[string]string{"subject": profile.SubjectID}
	})
	return pair, pair.Identity, nil
}

func (e *Engine) createProviderUser(ctx context.Context, profile *ProviderProfile) (*UserRecord, error) {
	// The random password is hashed and discarded, so it can never be used.
	hash, err := e.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	candidates := []string{strings.TrimSpace(profile.Name), profile.Email}
	for _, username := range candidates {
		if username == "" {
			continue
		}
		user, err := e.users.Create(ctx, NewUser{
			Username:     username,
			Email:        profile.Email,
			PasswordHash: hash,
			Role:         access.RoleUser,
		})
		if errors.Is(err, ErrAccountExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricRegisterSuccess)
		e.emitAudit(ctx, audit.TypeRegister, true, user.Identity(), nil, func() map[string]string {
			return map[string]string{"source": "provider"}
		})
		return user, nil
	}
	return nil, ErrAccountExists
}

/*
====================================
VERIFICATION
====================================
*/

// VerifyAccess verifies an access token and reconstructs its identity.
// Failures are the token package's errors (token.ErrExpired and friends).
func (e *Engine) VerifyAccess(ctx context.Context, raw string) (*Verification, error) {
	if e == nil || e.verifier == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		e.metrics.Observe(time.Since(start))
	}()

	res, err := e.verifier.Verify(raw, token.KindAccess)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, err
	}
	identity, err := identityFromSubject(res.Subject)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, err
	}

	e.metricInc(MetricVerifySuccess)
	return &Verification{
		Identity:         identity,
		ExpiresAt:        res.ExpiresAt,
		RefreshSuggested: res.RefreshSuggested,
	}, nil
}

func identityFromSubject(sub token.Subject) (*Identity, error) {
	role, err := access.ParseRole(sub.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrMalformed, err)
	}
	identity := &Identity{
		ID:       sub.ID,
		Username: sub.Username,
		Email:    sub.Email,
		Role:     role,
		Guest:    role == access.RoleGuest,
	}
	if identity.Guest {
		perms, err := access.NewPermissionSet(sub.Permissions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", token.ErrMalformed, err)
		}
		identity.Permissions = perms
	}
	return identity, nil
}

func subjectFor(user *UserRecord) token.Subject {
	return token.Subject{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role.String(),
	}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
