// Package middleware adapts authgate to net/http: token extraction and
// verification, role and ownership authorization, per-identity rate
// limiting and client IP capture.
//
// # Chain
//
// A typical protected route is
//
//	ClientIP → Authenticate → RateLimit → RequireRoles → RequireOwnership → handler
//
// [Authenticate] attaches the verified [authgate.Identity] to the request
// context; everything after it reads the identity from there.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to the Engine).
//   - Touch the user store; ownership goes through [OwnerResolver].
package middleware
