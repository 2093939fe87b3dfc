// Package ratelimit implements per-identity sliding-window-log limiting.
//
// # Window semantics
//
// For every check at time now, timestamps at or before now-window are
// pruned; the request is rejected when the remaining count has reached the
// limit, and otherwise now is appended. Rejected requests are not recorded.
//
// Two backends share the algorithm:
//   - [Memory]: in-process, sharded by xxhash of the identity id.
//   - [Redis]: one sorted set per identity, updated by a single Lua script.
//     Key prefix: rl:
//
// # What this package must NOT do
//
//   - Decide which identity a request belongs to (callers pass the id).
//   - Retry or queue rejected requests.
package ratelimit
