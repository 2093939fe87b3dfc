package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/access"
	"github.com/juju/clock/testclock"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndFind(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, authgate.NewUser{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", Role: access.RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byName, err := s.FindByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if byName.ID != rec.ID || byName.Role != access.RoleUser || byName.PasswordHash != "hash" {
		t.Fatalf("unexpected record %+v", byName)
	}
	if !byName.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at %v != %v", byName.CreatedAt, rec.CreatedAt)
	}

	byEmail, err := s.FindByEmail(ctx, "Alice@Example.com")
	if err != nil || byEmail.ID != rec.ID {
		t.Fatalf("FindByEmail: %+v, %v", byEmail, err)
	}
	byID, err := s.FindByID(ctx, rec.ID)
	if err != nil || byID.Username != "alice" {
		t.Fatalf("FindByID: %+v, %v", byID, err)
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.FindByUsername(ctx, "nobody"); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Fatalf("FindByUsername: expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.FindByEmail(ctx, ""); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Fatalf("FindByEmail: expected ErrUserNotFound, got %v", err)
	}
	if err := s.UpdatePassword(ctx, "missing", "x"); !errors.Is(err, authgate.ErrUserNotFound) {
		t.Fatalf("UpdatePassword: expected ErrUserNotFound, got %v", err)
	}
}

func TestDuplicateUsername(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, authgate.NewUser{Username: "alice", PasswordHash: "a", Role: access.RoleUser}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := s.Create(ctx, authgate.NewUser{Username: "Alice", PasswordHash: "b", Role: access.RoleUser})
	if !errors.Is(err, authgate.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestUpdateRefreshToken(t *testing.T) {
	t.Parallel()
	s := setupStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, authgate.NewUser{Username: "alice", PasswordHash: "a", Role: access.RoleAdmin})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.UpdateRefreshToken(ctx, rec.ID, "deadbeef"); err != nil {
		t.Fatalf("UpdateRefreshToken: %v", err)
	}
	got, _ := s.FindByID(ctx, rec.ID)
	if got.RefreshTokenHash != "deadbeef" || got.Role != access.RoleAdmin {
		t.Fatalf("unexpected record %+v", got)
	}

	if err := s.UpdateRefreshToken(ctx, rec.ID, ""); err != nil {
		t.Fatalf("clear refresh: %v", err)
	}
	got, _ = s.FindByID(ctx, rec.ID)
	if got.RefreshTokenHash != "" {
		t.Fatal("refresh hash not cleared")
	}
}

func TestReopenKeepsUsers(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "authgate.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec, err := s.Create(ctx, authgate.NewUser{Username: "alice", PasswordHash: "a", Role: access.RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.FindByUsername(ctx, "alice")
	if err != nil || got.ID != rec.ID {
		t.Fatalf("after reopen: %+v, %v", got, err)
	}
}

func TestCreateUsesInjectedClock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := testclock.NewClock(time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC))
	s, err := Open(ctx, ":memory:", WithClock(clk))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	first, err := s.Create(ctx, authgate.NewUser{Username: "alice", Email: "a@example.com", PasswordHash: "a", Role: access.RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := time.Date(2024, 3, 1, 12, 0, 0, 123000000, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", first.CreatedAt, want)
	}

	clk.Advance(time.Hour)
	if _, err := s.Create(ctx, authgate.NewUser{Username: "bob", Email: "a@example.com", PasswordHash: "b", Role: access.RoleUser}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.FindByID(ctx, first.ID)
	if err != nil || !got.CreatedAt.Equal(want) {
		t.Fatalf("FindByID: %+v, %v", got, err)
	}
	byEmail, err := s.FindByEmail(ctx, "a@example.com")
	if err != nil || byEmail.ID != first.ID {
		t.Fatalf("FindByEmail should return earliest: %+v, %v", byEmail, err)
	}
}
