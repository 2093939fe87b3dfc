package access

import (
	"errors"
	"testing"
)

func guestSubject() *Subject {
	perms, _ := NewPermissionSet("read")
	return &Subject{ID: "guest_1", Role: RoleGuest, Guest: true, Permissions: perms}
}

func TestAuthorizeRequiresSubject(t *testing.T) {
	var g Guard
	if err := g.Authorize(nil, []Role{RoleUser}, ActionRead); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthorizeGuestWriteForbidden(t *testing.T) {
	var g Guard
	err := g.Authorize(guestSubject(), []Role{RoleUser, RoleGuest}, ActionWrite)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if !errors.Is(err, ErrGuestForbidden) {
		t.Fatalf("expected ErrGuestForbidden, got %v", err)
	}
}

func TestAuthorizeGuestReadAllowedWhenRoleListed(t *testing.T) {
	var g Guard
	if err := g.Authorize(guestSubject(), []Role{RoleUser, RoleGuest}, ActionRead); err != nil {
		t.Fatalf("expected guest read to pass, got %v", err)
	}
	if err := g.Authorize(guestSubject(), []Role{RoleUser}, ActionRead); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected guest to fail role check, got %v", err)
	}
}

func TestAuthorizeUserWriteAllowed(t *testing.T) {
	var g Guard
	user := &Subject{ID: "u1", Role: RoleUser}
	if err := g.Authorize(user, []Role{RoleUser}, ActionWrite); err != nil {
		t.Fatalf("expected user write to pass, got %v", err)
	}
}

func TestAuthorizeAdminNotImplicitlyInRoleList(t *testing.T) {
	var g Guard
	admin := &Subject{ID: "a1", Role: RoleAdmin}
	if err := g.Authorize(admin, []Role{RoleUser}, ActionRead); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected admin outside role list to be forbidden, got %v", err)
	}
	if err := g.Authorize(admin, nil, ActionDelete); err != nil {
		t.Fatalf("expected empty role list to admit admin, got %v", err)
	}
}

func TestAuthorizeRoleErrorCarriesRoles(t *testing.T) {
	var g Guard
	required := []Role{RoleAdmin}
	err := g.Authorize(&Subject{ID: "u1", Role: RoleUser}, required, ActionRead)

	var roleErr *RoleError
	if !errors.As(err, &roleErr) {
		t.Fatalf("expected *RoleError, got %T %v", err, err)
	}
	if roleErr.Current != RoleUser || len(roleErr.Required) != 1 || roleErr.Required[0] != RoleAdmin {
		t.Fatalf("unexpected role error %+v", roleErr)
	}
	required[0] = RoleUser
	if roleErr.Required[0] != RoleAdmin {
		t.Fatalf("role error aliases caller slice")
	}

	err = g.Authorize(&Subject{ID: "g1", Role: RoleGuest, Guest: true}, []Role{RoleUser}, ActionWrite)
	if errors.As(err, &roleErr) {
		t.Fatalf("guest denial should not be a role error: %v", err)
	}
}

func TestAuthorizeOwnership(t *testing.T) {
	var g Guard
	owner := &Subject{ID: "u1", Role: RoleUser}
	other := &Subject{ID: "u2", Role: RoleUser}
	admin := &Subject{ID: "a1", Role: RoleAdmin}

	if err := g.AuthorizeOwnership(owner, "u1"); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if err := g.AuthorizeOwnership(other, "u1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if err := g.AuthorizeOwnership(admin, "u1"); err != nil {
		t.Fatalf("admin override denied: %v", err)
	}
	if err := g.AuthorizeOwnership(nil, "u1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestParseRoleAndText(t *testing.T) {
	r, err := ParseRole(" Admin ")
	if err != nil || r != RoleAdmin {
		t.Fatalf("ParseRole(Admin) = %v, %v", r, err)
	}
	if _, err := ParseRole("root"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	text, err := RoleGuest.MarshalText()
	if err != nil || string(text) != "guest" {
		t.Fatalf("MarshalText = %q, %v", text, err)
	}
	var back Role
	if err := back.UnmarshalText([]byte("user")); err != nil || back != RoleUser {
		t.Fatalf("UnmarshalText = %v, %v", back, err)
	}
	if _, err := RoleUnknown.MarshalText(); err == nil {
		t.Fatal("expected error marshalling unknown role")
	}
}

func TestPermissionSet(t *testing.T) {
	set, err := NewPermissionSet("read", " DELETE ", "")
	if err != nil {
		t.Fatalf("NewPermissionSet: %v", err)
	}
	if !set.Has(ActionRead) || set.Has(ActionWrite) || !set.Has(ActionDelete) {
		t.Fatalf("unexpected set %08b", set)
	}
	got := set.Actions()
	if len(got) != 2 || got[0] != "read" || got[1] != "delete" {
		t.Fatalf("Actions() = %v", got)
	}
	if _, err := NewPermissionSet("fly"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestActionForMethod(t *testing.T) {
	cases := map[string]Action{
		"GET":     ActionRead,
		"head":    ActionRead,
		"OPTIONS": ActionRead,
		"POST":    ActionWrite,
		"PUT":     ActionWrite,
		"PATCH":   ActionWrite,
		"DELETE":  ActionDelete,
	}
	for method, want := range cases {
		if got := ActionForMethod(method); got != want {
			t.Fatalf("ActionForMethod(%s) = %s, want %s", method, got, want)
		}
	}
}
