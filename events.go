package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// EventType names a session transition.
type EventType string

const (
	EventCreated      EventType = "session.created"
	EventRestored     EventType = "session.restored"
	EventExtended     EventType = "session.extended"
	EventCleared      EventType = "session.cleared"
	EventExpired      EventType = "session.expired"
	EventWarning      EventType = "session.warning"
	EventUnauthorized EventType = "session.unauthorized"
)

// Event describes one transition. Credentials are never included.
type Event struct {
	Type      EventType    `json:"type"`
	Kind      session.Kind `json:"kind,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	ExpiresAt int64        `json:"expires_at,omitempty"`
	// Remaining is set on warnings; MinutesRemaining is it rounded up.
	Remaining        time.Duration `json:"remaining,omitempty"`
	MinutesRemaining int           `json:"minutes_remaining,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
}

// Forced reports whether the system, not the user, ended the session.
func (e Event) Forced() bool {
	return e.Type == EventExpired || e.Type == EventUnauthorized ||
		(e.Type == EventCleared && e.Reason == ReasonExternal)
}

// Err returns the sentinel behind a forced clear, or nil.
func (e Event) Err() error {
	switch e.Type {
	case EventExpired:
		return ErrSessionExpired
	case EventUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// EventSink receives events.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, event Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event Event) {
	f(ctx, event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
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
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
