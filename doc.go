// Package authgate is a stateless token authentication engine: password and
// federated login, guest sessions, refresh, logout and password change, with
// signed JWT access and refresh tokens.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Sessions
//
// Access tokens are verified without any store round-trip. Each registered
// user has at most one recorded refresh token (stored as a SHA-256 hash);
// issuing a new one at login supersedes the old, and logout clears it.
// Guests get a short-lived access token and no refresh token.
//
// # Layout
//
//   - token: signing, parsing and verification of access/refresh tokens.
//   - access: roles, guest permissions and the authorization guard.
//   - ratelimit: sliding-window limiters (in-memory and Redis).
//   - password: bcrypt/Argon2id hashing and the strength policy.
//   - middleware, httpapi: net/http integration.
//   - store/memory, store/sqlite: UserStore implementations.
//   - provider/google: Google ID token verification.
//
// # What this package must NOT do
//
//   - Store plaintext passwords or raw refresh tokens.
//   - Import any sub-package that re-imports authgate (no import cycles).
package authgate
