// Package sqlite is an authgate.UserStore backed by SQLite through the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/access"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ authgate.UserStore = (*Store)(nil)

// Store persists users in a single "users" table.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock stamping CreatedAt. Defaults to clock.WallClock.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// Open opens (or creates) the database at path and initializes the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" a
	// single database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	s := &Store{db: db, clock: clock.WallClock}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if err := initTable(ctx, db, "users", `
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			username       TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email          TEXT NOT NULL DEFAULT '',
			password_hash  TEXT NOT NULL,
			role           TEXT NOT NULL,
			refresh_hash   TEXT NOT NULL DEFAULT '',
			created_at     INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(ctx, db, "users_email_idx", `
		CREATE INDEX IF NOT EXISTS users_email_idx ON users (email COLLATE NOCASE);`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(ctx context.Context, db *sql.DB, name, stmt string) error {
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %w", name, err)
	}
	return nil
}

const selectUser = `
	SELECT id, username, email, password_hash, role, refresh_hash, created_at
	FROM users`

// FindByUsername matches username case-insensitively.
func (s *Store) FindByUsername(ctx context.Context, username string) (*authgate.UserRecord, error) {
	return s.queryOne(ctx, selectUser+` WHERE username = ?`, username)
}

// FindByID returns authgate.ErrUserNotFound for unknown ids.
func (s *Store) FindByID(ctx context.Context, id string) (*authgate.UserRecord, error) {
	return s.queryOne(ctx, selectUser+` WHERE id = ?`, id)
}

// FindByEmail returns the earliest created user with email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*authgate.UserRecord, error) {
	if email == "" {
		return nil, authgate.ErrUserNotFound
	}
	return s.queryOne(ctx, selectUser+` WHERE email = ? COLLATE NOCASE ORDER BY created_at, rowid LIMIT 1`, email)
}

func (s *Store) queryOne(ctx context.Context, query string, arg any) (*authgate.UserRecord, error) {
	var (
		rec     authgate.UserRecord
		role    string
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&rec.ID,
		&rec.Username,
		&rec.Email,
		&rec.PasswordHash,
		&role,
		&rec.RefreshTokenHash,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authgate.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't query users: %w", err)
	}

	rec.Role, err = access.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return &rec, nil
}

func (s *Store) Create(ctx context.Context, nu authgate.NewUser) (*authgate.UserRecord, error) {
	rec := &authgate.UserRecord{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CreatedAt:    s.clock.Now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		`,
		rec.ID,
		rec.Username,
		rec.Email,
		rec.PasswordHash,
		rec.Role.String(),
		rec.CreatedAt.UnixMilli(),
	)
	if isUniqueViolation(err) {
		return nil, authgate.ErrAccountExists
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't insert into users: %w", err)
	}
	return rec, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.updateColumn(ctx, "password_hash", id, passwordHash)
}

func (s *Store) UpdateRefreshToken(ctx context.Context, id, tokenHash string) error {
	return s.updateColumn(ctx, "refresh_hash", id, tokenHash)
}

// updateColumn is only called with the column names above.
func (s *Store) updateColumn(ctx context.Context, column, id, value string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+column+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("couldn't update users.%s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("couldn't update users.%s: %w", column, err)
	}
	if n == 0 {
		return authgate.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
