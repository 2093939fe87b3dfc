// Package memory is an in-process authgate.UserStore for tests, demos and
// single-instance deployments. Records are lost on restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/google/uuid"
)

var _ authgate.UserStore = (*Store)(nil)

// Store keeps users in maps guarded by one RWMutex. Usernames and emails
// match case-insensitively.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*authgate.UserRecord
	byUsername map[string]string
	now        func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]*authgate.UserRecord),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (s *Store) FindByUsername(_ context.Context, username string) (*authgate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, authgate.ErrUserNotFound
	}
	return copyRecord(s.byID[id]), nil
}

func (s *Store) FindByID(_ context.Context, id string) (*authgate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, authgate.ErrUserNotFound
	}
	return copyRecord(rec), nil
}

// FindByEmail returns the earliest created user with email.
func (s *Store) FindByEmail(_ context.Context, email string) (*authgate.UserRecord, error) {
	if email == "" {
		return nil, authgate.ErrUserNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *authgate.UserRecord
	for _, rec := range s.byID {
		if !strings.EqualFold(rec.Email, email) {
			continue
		}
		if found == nil || rec.CreatedAt.Before(found.CreatedAt) {
			found = rec
		}
	}
	if found == nil {
		return nil, authgate.ErrUserNotFound
	}
	return copyRecord(found), nil
}

func (s *Store) Create(_ context.Context, nu authgate.NewUser) (*authgate.UserRecord, error) {
	key := strings.ToLower(nu.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[key]; taken {
		return nil, authgate.ErrAccountExists
	}
	rec := &authgate.UserRecord{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CreatedAt:    s.now().UTC(),
	}
	s.byID[rec.ID] = rec
	s.byUsername[key] = rec.ID
	return copyRecord(rec), nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return authgate.ErrUserNotFound
	}
	rec.PasswordHash = passwordHash
	return nil
}

func (s *Store) UpdateRefreshToken(_ context.Context, id, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return authgate.ErrUserNotFound
	}
	rec.RefreshTokenHash = tokenHash
	return nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func copyRecord(rec *authgate.UserRecord) *authgate.UserRecord {
	cp := *rec
	return &cp
}
