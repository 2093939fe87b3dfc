// Package password hashes and verifies user passwords and enforces the
// strength policy applied at registration and password change.
//
// # Output formats
//
// [Bcrypt] produces standard modular-crypt hashes ($2a$/$2b$). [Argon2]
// produces PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Multi] hashes with one algorithm and verifies hashes of either format,
// so a deployment can switch algorithms without invalidating stored users.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other authgate package.
//   - Log plaintext passwords.
package password
