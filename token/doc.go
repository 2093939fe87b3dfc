// Package token issues and verifies the signed, time-bound JWTs used for
// access and refresh credentials.
//
// A single [Codec] holds one signing key per [Kind], so a leaked refresh key
// cannot mint access tokens and vice versa. Every token also carries a kind
// tag that is checked on parse; the tag is never inferred from the key.
//
// # Failure normalization
//
// Parse and verify failures are reduced to exactly one of [ErrExpired],
// [ErrMalformed], [ErrWrongKind], [ErrWrongAudience] or [ErrNotYetValid],
// whatever the underlying jwt library reported.
//
// # What this package must NOT do
//
//   - Consult user stores or revocation records; parsing is pure.
//   - Import authgate or any transport package.
package token
