package access

import (
	"errors"
	"strings"
)

// Role is the closed set of privilege levels a subject can hold.
type Role uint8

const (
	// RoleUnknown is the zero value and never authorizes anything.
	RoleUnknown Role = iota
	// RoleGuest is the fixed role of anonymous, time-boxed identities.
	RoleGuest
	// RoleUser is the default role of registered identities.
	RoleUser
	// RoleAdmin is a registered identity with the ownership override.
	RoleAdmin
)

// ErrUnknownRole is returned when a role name does not match any Role.
var ErrUnknownRole = errors.New("unknown role")

var roleNames = [...]string{
	RoleUnknown: "",
	RoleGuest:   "guest",
	RoleUser:    "user",
	RoleAdmin:   "admin",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return ""
}

// ParseRole maps a role name to its Role. Matching is case-insensitive.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "guest":
		return RoleGuest, nil
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUnknown, ErrUnknownRole
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r >= RoleGuest && r <= RoleAdmin
}

// OverridesOwnership reports whether the role may act on resources it does
// not own. This is the only place the admin override is decided.
func (r Role) OverridesOwnership() bool {
	return r == RoleAdmin
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrUnknownRole
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRoles parses every name in names, failing on the first unknown one.
func ParseRoles(names ...string) ([]Role, error) {
	out := make([]Role, 0, len(names))
	for _, name := range names {
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}
