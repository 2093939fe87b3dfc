package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/clock"
)

// SigningMethod selects the JWT algorithm used for both kinds.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Key is the key material for one token kind. For hs256 only Secret is
// used; for ed25519 Secret holds the private key and Public the public key
// (raw bytes or PEM). Public may be omitted when Secret is a raw private key.
type Key struct {
	Secret []byte
	Public []byte
}

// Config configures a Codec.
type Config struct {
	SigningMethod SigningMethod
	AccessKey     Key
	RefreshKey    Key
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Issued is the result of a successful Issue call.
type Issued struct {
	Token     string
	Claims    *Claims
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type keyPair struct {
	sign   interface{}
	verify interface{}
}

// Codec signs and parses tokens with one key per Kind.
type Codec struct {
	config Config
	method jwt.SigningMethod
	keys   map[Kind]keyPair
}

// NewCodec validates cfg and resolves its key material.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	c := &Codec{config: cfg, keys: make(map[Kind]keyPair, 2)}
	switch cfg.SigningMethod {
	case MethodHS256:
		c.method = jwt.SigningMethodHS256
	case MethodEd25519:
		c.method = jwt.SigningMethodEdDSA
	default:
		return nil, errors.New("unsupported signing method")
	}

	for kind, key := range map[Kind]Key{KindAccess: cfg.AccessKey, KindRefresh: cfg.RefreshKey} {
		pair, err := resolveKey(cfg.SigningMethod, key)
		if err != nil {
			return nil, fmt.Errorf("%s key: %w", kind, err)
		}
		c.keys[kind] = pair
	}
	if string(cfg.AccessKey.Secret) == string(cfg.RefreshKey.Secret) {
		return nil, errors.New("access and refresh keys must differ")
	}
	return c, nil
}

// Issue signs a token of the given kind for sub, valid for ttl from now.
func (c *Codec) Issue(sub Subject, kind Kind, ttl time.Duration) (*Issued, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("issue: unknown kind %q", kind)
	}
	if ttl <= 0 {
		return nil, errors.New("issue: ttl must be positive")
	}
	if sub.ID == "" {
		return nil, errors.New("issue: empty subject")
	}

	now := c.config.Clock.Now().Truncate(time.Second)
	exp := now.Add(ttl)
	claims := &Claims{
		Kind:     kind,
		Username: sub.Username,
		Email:    sub.Email,
		Role:     sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	if len(sub.Permissions) > 0 {
		claims.Permissions = append([]string(nil), sub.Permissions...)
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.keys[kind].sign)
	if err != nil {
		return nil, fmt.Errorf("issue: %w", err)
	}
	return &Issued{Token: signed, Claims: claims, IssuedAt: now, ExpiresAt: exp}, nil
}

// Parse verifies raw with the key for kind and returns its claims. Failures
// are normalized to the package's error set.
func (c *Codec) Parse(raw string, kind Kind) (*Claims, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrWrongKind, kind)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.config.Clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		unverified, ok := t.Claims.(*Claims)
		if !ok || unverified.Kind == "" {
			return nil, errMissingKind
		}
		if unverified.Kind != kind {
			return nil, ErrWrongKind
		}
		return c.keys[kind].verify, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", classify(err), err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if claims.RegisteredClaims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return claims, nil
}

func resolveKey(method SigningMethod, key Key) (keyPair, error) {
	if method == MethodHS256 {
		if len(key.Secret) == 0 {
			return keyPair{}, errors.New("hs256 requires a secret")
		}
		return keyPair{sign: key.Secret, verify: key.Secret}, nil
	}

	priv, err := parseEdPrivateKey(key.Secret)
	if err != nil {
		return keyPair{}, err
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return keyPair{}, errors.New("invalid ed25519 private key")
	}
	if len(key.Public) > 0 {
		pub, err = parseEdPublicKey(key.Public)
		if err != nil {
			return keyPair{}, err
		}
	}
	return keyPair{sign: priv, verify: pub}, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
