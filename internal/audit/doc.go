// Package audit relays security-relevant session events (logins, refreshes,
// logouts, password changes, rate-limit rejections) to a pluggable sink.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, logr, no-op).
//   - [Dispatcher]: buffered async relay, either dropping or blocking when full.
//   - [Event]: one audit record.
//
// The Engine decides which events exist; this package only buffers and delivers.
//
// # What this package must NOT do
//
//   - Filter events based on business rules.
//   - Import authgate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
