package access

import (
	"errors"
	"net/http"
	"strings"
)

// Action is the kind of operation a request performs on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// ErrUnknownAction is returned when an action name is not recognised.
var ErrUnknownAction = errors.New("unknown action")

func (a Action) bit() (uint8, bool) {
	switch a {
	case ActionRead:
		return 1 << 0, true
	case ActionWrite:
		return 1 << 1, true
	case ActionDelete:
		return 1 << 2, true
	default:
		return 0, false
	}
}

// ActionForMethod maps an HTTP method to the action it performs.
func ActionForMethod(method string) Action {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionWrite
	}
}

// PermissionSet is a bitmask of granted actions.
type PermissionSet uint8

// NewPermissionSet builds a set from action names, rejecting unknown ones.
func NewPermissionSet(actions ...string) (PermissionSet, error) {
	var set PermissionSet
	for _, name := range actions {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !set.Add(Action(name)) {
			return 0, ErrUnknownAction
		}
	}
	return set, nil
}

// Has reports whether action is granted.
func (p PermissionSet) Has(action Action) bool {
	bit, ok := action.bit()
	if !ok {
		return false
	}
	return uint8(p)&bit != 0
}

// Add grants action. It returns false for unknown actions.
func (p *PermissionSet) Add(action Action) bool {
	bit, ok := action.bit()
	if !ok {
		return false
	}
	*p |= PermissionSet(bit)
	return true
}

// Actions lists the granted actions in a stable order.
func (p PermissionSet) Actions() []string {
	out := make([]string, 0, 3)
	for _, a := range []Action{ActionRead, ActionWrite, ActionDelete} {
		if p.Has(a) {
			out = append(out, string(a))
		}
	}
	return out
}
