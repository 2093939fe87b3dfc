package authgate

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authgate/access"
	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/ratelimit"
	"github.com/MrEthical07/authgate/token"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/juju/clock"
)

// Builder wires collaborators into an Engine. A Builder can be used once.
type Builder struct {
	config Config

	users        UserStore
	hasher       PasswordHasher
	provider     IdentityProvider
	loginLimiter ratelimit.Limiter
	clock        clock.Clock
	logger       *logr.Logger
	auditSink    AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration. The config is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the required user store.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithHasher overrides the hasher derived from Config.Password.
func (b *Builder) WithHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithProvider enables LoginWithProvider.
func (b *Builder) WithProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithLoginLimiter overrides the in-memory login throttle, e.g. with a
// ratelimit.Redis shared across replicas.
func (b *Builder) WithLoginLimiter(l ratelimit.Limiter) *Builder {
	b.loginLimiter = l
	return b
}

// WithClock sets the clock for token issuance and verification, the login
// throttle and audit timestamps. Tests pass a testclock.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the engine logger. The default writes through the
// standard log package.
func (b *Builder) WithLogger(l logr.Logger) *Builder {
	b.logger = &l
	return b
}

// WithAuditSink sets the sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	clk := b.clock
	if clk == nil {
		clk = clock.WallClock
	}
	logger := stdr.New(nil).WithName("authgate")
	if b.logger != nil {
		logger = *b.logger
	}

	codec, err := token.NewCodec(token.Config{
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		AccessKey:     token.Key{Secret: cfg.JWT.AccessSecret, Public: cfg.JWT.AccessPublicKey},
		RefreshKey:    token.Key{Secret: cfg.JWT.RefreshSecret, Public: cfg.JWT.RefreshPublicKey},
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Clock:         clk,
	})
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	guestPerms, err := access.NewPermissionSet(cfg.Guest.Permissions...)
	if err != nil {
		return nil, fmt.Errorf("guest permissions: %w", err)
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = newHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
	}
	dummyHash, err := hasher.Hash("authgate-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	limiter := b.loginLimiter
	if limiter == nil && cfg.LoginThrottle.Enabled {
		limiter, err = ratelimit.NewMemory(ratelimit.Config{
			Window: cfg.LoginThrottle.Window,
			Max:    cfg.LoginThrottle.Max,
		})
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:       cfg,
		users:        b.users,
		hasher:       hasher,
		policy:       cfg.Password.Policy,
		provider:     b.provider,
		codec:        codec,
		verifier:     token.NewVerifier(codec, cfg.JWT.RefreshWarning),
		loginLimiter: limiter,
		clock:        clk,
		log:          logger,
		metrics:      NewMetrics(cfg.Metrics),
		guestPerms:   guestPerms,
		dummyHash:    dummyHash,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true
	return engine, nil
}

func newHasher(cfg PasswordConfig) (PasswordHasher, error) {
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	a2, err := password.NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}
	multi := &password.Multi{Primary: bc, Bcrypt: bc, Argon2: a2}
	if cfg.Algorithm == "argon2id" {
		multi.Primary = a2
	}
	return multi, nil
}
