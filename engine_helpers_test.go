package authgate

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/access"
	"github.com/go-logr/logr"
	"github.com/juju/clock/testclock"
	"golang.org/x/crypto/bcrypt"
)

var testEpoch = time.Unix(1_700_000_000, 0)

type mockUserStore struct {
	mu     sync.Mutex
	users  map[string]*UserRecord
	nextID int

	findErr   error
	updateErr error

	updateRefreshCalls int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]*UserRecord{}}
}

func (m *mockUserStore) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserStore) FindByID(_ context.Context, id string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserStore) Create(_ context.Context, nu NewUser) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, nu.Username) {
			return nil, ErrAccountExists
		}
	}
	m.nextID++
	rec := &UserRecord{
		ID:           "u-" + strconv.Itoa(m.nextID),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CreatedAt:    testEpoch,
	}
	m.users[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (m *mockUserStore) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserStore) UpdateRefreshToken(_ context.Context, id, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateRefreshCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.RefreshTokenHash = tokenHash
	return nil
}

func (m *mockUserStore) refreshHash(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u.RefreshTokenHash
	}
	return ""
}

func (m *mockUserStore) passwordHash(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u.PasswordHash
	}
	return ""
}

func (m *mockUserStore) addUser(t *testing.T, username, email, plain string, role access.Role) *UserRecord {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	rec, err := m.Create(context.Background(), NewUser{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return rec
}

type stubProvider struct {
	profile *ProviderProfile
	err     error
}

func (p stubProvider) VerifyCredential(_ context.Context, credential string) (*ProviderProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	if credential != "good-credential" {
		return nil, ErrProviderCredentialInvalid
	}
	return p.profile, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789abcdef")
	cfg.JWT.Issuer = "authgate"
	cfg.JWT.Audience = "authgate-clients"
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.LoginThrottle.Max = 1000
	return cfg
}

type engineOption func(*Builder)

func newTestEngine(t *testing.T, store UserStore, mutate func(*Config), opts ...engineOption) (*Engine, *testclock.Clock) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clk := testclock.NewClock(testEpoch)
	b := New().
		WithConfig(cfg).
		WithUserStore(store).
		WithClock(clk).
		WithLogger(logr.Discard())
	for _, opt := range opts {
		opt(b)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(e.Close)
	return e, clk
}
