package authgate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/access"
)

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestAuditLoginEvents(t *testing.T) {
	store := newMockUserStore()
	alice := store.addUser(t, "alice", "", "Secret#123A", access.RoleUser)
	sink := NewChannelSink(16)
	e, _ := newTestEngine(t, store, nil, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if _, err := e.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	failed := nextEvent(t, sink)
	if failed.Type != "login" || failed.Success || failed.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected failure event %+v", failed)
	}
	if failed.UserID != alice.ID || failed.IP != "203.0.113.7" {
		t.Fatalf("failure event missing user or ip: %+v", failed)
	}
	if failed.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("reason = %q", failed.Metadata["reason"])
	}

	if _, err := e.Login(ctx, "alice", "Secret#123A"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	ok := nextEvent(t, sink)
	if ok.Type != "login" || !ok.Success || ok.Error != "" || ok.Username != "alice" {
		t.Fatalf("unexpected success event %+v", ok)
	}
	if !ok.Timestamp.Equal(testEpoch.UTC()) {
		t.Fatalf("timestamp = %v, want engine clock", ok.Timestamp)
	}
}

func TestAuditGuestAndLogout(t *testing.T) {
	sink := NewChannelSink(16)
	e, _ := newTestEngine(t, newMockUserStore(), nil, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	g, err := e.GuestLogin(ctx)
	if err != nil {
		t.Fatalf("GuestLogin: %v", err)
	}
	ev := nextEvent(t, sink)
	if ev.Type != "guest_login" || !ev.Guest || ev.UserID != g.Identity.ID {
		t.Fatalf("unexpected guest event %+v", ev)
	}

	if err := e.Logout(ctx, g.Identity); err != nil {
		t.Fatalf("guest Logout: %v", err)
	}
	if ev := nextEvent(t, sink); ev.Type != "logout" || !ev.Guest {
		t.Fatalf("unexpected logout event %+v", ev)
	}
}

func TestAuditJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	store := newMockUserStore()
	e, _ := newTestEngine(t, store, nil, func(b *Builder) { b.WithAuditSink(NewJSONWriterSink(&buf)) })

	if _, err := e.Register(context.Background(), RegisterRequest{Username: "alice", Password: "Secret#123A"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	e.Close()

	line := strings.TrimSpace(buf.String())
	var ev AuditEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if ev.Type != "register" || !ev.Success || ev.Username != "alice" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAuditErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{&RateLimitError{RetryAfter: time.Minute}, auditErrRateLimited},
		{ErrRefreshRevoked, auditErrRefreshRevoked},
		{ErrAccountExists, auditErrDuplicate},
		{ErrPasswordTooWeak, auditErrPasswordPolicy},
		{access.ErrUnauthenticated, auditErrUnauthenticated},
		{errors.New("boom"), auditErrInternal},
	}
	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
