package authgate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/token"
)

// Config is the full engine configuration. Start from DefaultConfig or
// ConfigFromEnv and adjust before handing it to the Builder.
type Config struct {
	JWT           JWTConfig
	Guest         GuestConfig
	Session       SessionConfig
	RateLimit     RateLimitConfig
	LoginThrottle LoginThrottleConfig
	Password      PasswordConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. With hs256 the secrets are HMAC keys;
// with ed25519 they are private keys and the public keys are optional.
type JWTConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SigningMethod    string // "hs256" (default) or "ed25519"
	AccessSecret     []byte
	RefreshSecret    []byte
	AccessPublicKey  []byte
	RefreshPublicKey []byte
	Issuer           string
	Audience         string
	Leeway           time.Duration
	RefreshWarning   time.Duration
}

/*
====================================
GUEST / SESSION CONFIG
====================================
*/

// GuestConfig controls anonymous sessions.
type GuestConfig struct {
	Enabled     bool
	TTL         time.Duration
	Permissions []string
	Username    string
	Email       string
}

// SessionConfig controls refresh behavior.
type SessionConfig struct {
	// RotateRefreshToken issues a new refresh token on every Refresh,
	// superseding the presented one.
	RotateRefreshToken bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig is the per-identity API quota applied by middleware.
type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

// LoginThrottleConfig limits login attempts per client IP (or username when
// no IP is known).
type LoginThrottleConfig struct {
	Enabled bool
	Window  time.Duration
	Max     int
}

/*
====================================
PASSWORD / SECURITY CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and strength policy.
type PasswordConfig struct {
	Algorithm  string // "bcrypt" (default) or "argon2id"
	BcryptCost int
	Argon2     password.Argon2Config
	Policy     password.Policy
	// UpgradeOnLogin rehashes a stored password after a successful login
	// when it was made by the other algorithm or with weaker parameters.
	UpgradeOnLogin bool
}

// SecurityConfig holds session-revocation switches.
type SecurityConfig struct {
	RevokeRefreshOnPasswordChange bool
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT secrets are left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:      15 * time.Minute,
			RefreshTTL:     7 * 24 * time.Hour,
			SigningMethod:  "hs256",
			RefreshWarning: token.DefaultRefreshWarning,
		},
		Guest: GuestConfig{
			Enabled:     true,
			TTL:         24 * time.Hour,
			Permissions: []string{string(access.ActionRead)},
			Username:    "guest_user",
			Email:       "guest@example.com",
		},
		Session: SessionConfig{
			RotateRefreshToken: false,
		},
		RateLimit: RateLimitConfig{
			Window: 15 * time.Minute,
			Max:    100,
		},
		LoginThrottle: LoginThrottleConfig{
			Enabled: true,
			Window:  5 * time.Minute,
			Max:     5,
		},
		Password: PasswordConfig{
			Algorithm:      "bcrypt",
			BcryptCost:     password.DefaultBcryptCost,
			Argon2:         password.DefaultArgon2Config(),
			Policy:         password.DefaultPolicy(),
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			RevokeRefreshOnPasswordChange: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	out.Guest.Permissions = append([]string(nil), cfg.Guest.Permissions...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.SigningMethod != "hs256" && c.JWT.SigningMethod != "ed25519" {
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}
	if c.JWT.RefreshWarning < 0 {
		return errors.New("JWT RefreshWarning must be >= 0")
	}

	// Guest
	if c.Guest.Enabled {
		if c.Guest.TTL <= 0 {
			return errors.New("Guest TTL must be > 0")
		}
		if _, err := access.NewPermissionSet(c.Guest.Permissions...); err != nil {
			return fmt.Errorf("Guest Permissions: %w", err)
		}
	}

	// Rate limits
	if c.RateLimit.Window <= 0 || c.RateLimit.Max <= 0 {
		return errors.New("RateLimit Window and Max must be > 0")
	}
	if c.LoginThrottle.Enabled && (c.LoginThrottle.Window <= 0 || c.LoginThrottle.Max <= 0) {
		return errors.New("LoginThrottle Window and Max must be > 0 when enabled")
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt", "argon2id":
	default:
		return errors.New("unsupported password algorithm")
	}
	if c.Password.Policy.MinLength < 1 {
		return errors.New("Password Policy MinLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

/*
====================================
ENVIRONMENT
====================================
*/

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// ConfigFromEnv builds a Config from environment variables on top of
// DefaultConfig. JWT_SECRET and JWT_REFRESH_SECRET are required.
func ConfigFromEnv(lookup LookupFunc) (Config, error) {
	cfg := DefaultConfig()

	secret, ok := lookup("JWT_SECRET")
	if !ok || secret == "" {
		return Config{}, errors.New("missing required env var JWT_SECRET")
	}
	refreshSecret, ok := lookup("JWT_REFRESH_SECRET")
	if !ok || refreshSecret == "" {
		return Config{}, errors.New("missing required env var JWT_REFRESH_SECRET")
	}
	cfg.JWT.AccessSecret = []byte(secret)
	cfg.JWT.RefreshSecret = []byte(refreshSecret)

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"JWT_EXPIRY", &cfg.JWT.AccessTTL},
		{"JWT_REFRESH_EXPIRY", &cfg.JWT.RefreshTTL},
		{"JWT_LEEWAY", &cfg.JWT.Leeway},
		{"GUEST_EXPIRY", &cfg.Guest.TTL},
		{"RATE_LIMIT_WINDOW", &cfg.RateLimit.Window},
		{"LOGIN_RATE_LIMIT_WINDOW", &cfg.LoginThrottle.Window},
	}
	for _, d := range durations {
		if v, ok := lookup(d.name); ok && v != "" {
			parsed, err := token.ParseTTL(v)
			if err != nil {
				return Config{}, fmt.Errorf("env %s: %w", d.name, err)
			}
			*d.dst = parsed
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"RATE_LIMIT_MAX", &cfg.RateLimit.Max},
		{"LOGIN_RATE_LIMIT_MAX", &cfg.LoginThrottle.Max},
		{"BCRYPT_COST", &cfg.Password.BcryptCost},
	}
	for _, n := range ints {
		if v, ok := lookup(n.name); ok && v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("env %s: %w", n.name, err)
			}
			*n.dst = parsed
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"JWT_ROTATE_REFRESH", &cfg.Session.RotateRefreshToken},
		{"GUEST_ENABLED", &cfg.Guest.Enabled},
		{"LOGIN_RATE_LIMIT_ENABLED", &cfg.LoginThrottle.Enabled},
		{"AUDIT_ENABLED", &cfg.Audit.Enabled},
		{"PASSWORD_UPGRADE_ON_LOGIN", &cfg.Password.UpgradeOnLogin},
	}
	for _, b := range bools {
		if v, ok := lookup(b.name); ok && v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, fmt.Errorf("env %s: %w", b.name, err)
			}
			*b.dst = parsed
		}
	}

	if v, ok := lookup("JWT_ISSUER"); ok {
		cfg.JWT.Issuer = v
	}
	if v, ok := lookup("JWT_AUDIENCE"); ok {
		cfg.JWT.Audience = v
	}
	if v, ok := lookup("JWT_SIGNING_METHOD"); ok && v != "" {
		cfg.JWT.SigningMethod = strings.ToLower(v)
	}
	if v, ok := lookup("PASSWORD_ALGORITHM"); ok && v != "" {
		cfg.Password.Algorithm = strings.ToLower(v)
	}
	if v, ok := lookup("GUEST_PERMISSIONS"); ok {
		cfg.Guest.Permissions = splitList(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
