package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Event types emitted by the Engine.
const (
	TypeRegister         = "register"
	TypeLogin            = "login"
	TypeGuestLogin       = "guest_login"
	TypeProviderLogin    = "provider_login"
	TypeRefresh          = "refresh"
	TypeLogout           = "logout"
	TypePasswordChange   = "password_change"
	TypeLoginRateLimited = "login_rate_limited"
)

// Event is one audit record.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Username  string            `json:"username,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Guest     bool              `json:"guest,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

// LogSink writes events as structured log lines at verbosity 1, failures at 0.
type LogSink struct {
	Logger logr.Logger
}

func (s LogSink) Emit(_ context.Context, event Event) {
	kv := []interface{}{
		"type", event.Type,
		"success", event.Success,
	}
	if event.UserID != "" {
		kv = append(kv, "userID", event.UserID)
	}
	if event.IP != "" {
		kv = append(kv, "ip", event.IP)
	}
	if event.Guest {
		kv = append(kv, "guest", true)
	}
	if event.Error != "" {
		kv = append(kv, "error", event.Error)
	}
	if event.Success {
		s.Logger.V(1).Info("audit", kv...)
		return
	}
	s.Logger.Info("audit", kv...)
}
