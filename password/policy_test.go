package password

import (
	"errors"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	for _, ok := range []string{"Secret#123A", "Passw0rd!", "Ünïcode1$x"} {
		if err := p.Check(ok); err != nil {
			t.Fatalf("Check(%q): %v", ok, err)
		}
	}
	for _, weak := range []string{"", "Ab1!", "password", "PASSWORD1!", "password1!", "Password!!", "Password12"} {
		if err := p.Check(weak); !errors.Is(err, ErrTooWeak) {
			t.Fatalf("Check(%q): expected ErrTooWeak, got %v", weak, err)
		}
	}
}

func TestRelaxedPolicy(t *testing.T) {
	p := Policy{MinLength: 4}
	if err := p.Check("abcd"); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := p.Check("abc"); !errors.Is(err, ErrTooWeak) {
		t.Fatalf("expected ErrTooWeak, got %v", err)
	}
}
