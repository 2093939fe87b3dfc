package access

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no subject is attached to the request.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the subject may not perform the action.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrGuestForbidden is returned for actions outside the guest permission set.
	ErrGuestForbidden = errors.New("this action is not allowed for guest users, please sign up for full access")
)

// Subject is the authorization view of an authenticated identity.
type Subject struct {
	ID          string
	Role        Role
	Guest       bool
	Permissions PermissionSet
}

// RoleError reports a role outside the set a route requires.
// It matches ErrForbidden.
type RoleError struct {
	Required []Role
	Current  Role
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("%s: role %s not in %v", ErrForbidden, e.Current, e.Required)
}

func (e *RoleError) Unwrap() error { return ErrForbidden }

// Guard evaluates role, guest-permission and ownership rules.
// The zero value is ready to use and safe for concurrent use.
type Guard struct{}

// Authorize checks that subject may perform action on a route restricted to
// required roles. An empty required list admits any authenticated role.
// Errors wrap ErrUnauthenticated or ErrForbidden; guest denials also match
// ErrGuestForbidden and role mismatches are a *RoleError.
func (Guard) Authorize(subject *Subject, required []Role, action Action) error {
	if subject == nil || subject.ID == "" {
		return ErrUnauthenticated
	}

	if subject.Guest || subject.Role == RoleGuest {
		if !subject.Permissions.Has(action) {
			return errors.Join(ErrForbidden, ErrGuestForbidden)
		}
	}

	if !subject.Role.Valid() {
		return ErrForbidden
	}
	if len(required) == 0 {
		return nil
	}
	for _, role := range required {
		if role == subject.Role {
			return nil
		}
	}
	return &RoleError{Required: append([]Role(nil), required...), Current: subject.Role}
}

// AuthorizeOwnership checks that subject owns the resource owned by ownerID,
// unless its role overrides ownership.
func (Guard) AuthorizeOwnership(subject *Subject, ownerID string) error {
	if subject == nil || subject.ID == "" {
		return ErrUnauthenticated
	}
	if subject.Role.OverridesOwnership() && !subject.Guest {
		return nil
	}
	if ownerID == "" || subject.ID != ownerID {
		return ErrForbidden
	}
	return nil
}
