// Package access implements the role and permission checks applied to an
// authenticated subject: role membership, the guest permission set and
// resource ownership.
//
// # Rules
//
// [Guard.Authorize] evaluates, in order:
//
//  1. no subject → [ErrUnauthenticated]
//  2. guest subject → the action must be in the guest permission set,
//     otherwise [ErrGuestForbidden]
//  3. the subject's role must be one of the route's required roles,
//     otherwise [ErrForbidden]
//
// [Guard.AuthorizeOwnership] passes for roles whose [Role.OverridesOwnership]
// is true (admin) and otherwise requires the subject to own the resource.
//
// # What this package must NOT do
//
//   - Look up resources or users; ownership ids are supplied by the caller.
//   - Import authgate, token, or any transport package.
package access
