package goSession

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventForcedAndErr(t *testing.T) {
	tests := []struct {
		event  Event
		forced bool
		err    error
	}{
		{Event{Type: EventExpired, Reason: ReasonExpired}, true, ErrSessionExpired},
		{Event{Type: EventUnauthorized, Reason: ReasonUnauth}, true, ErrUnauthorized},
		{Event{Type: EventCleared, Reason: ReasonExternal}, true, nil},
		{Event{Type: EventCleared, Reason: ReasonLogout}, false, nil},
		{Event{Type: EventCreated}, false, nil},
	}
	for _, tt := range tests {
		if got := tt.event.Forced(); got != tt.forced {
			t.Fatalf("%s/%s Forced() = %v", tt.event.Type, tt.event.Reason, got)
		}
		if got := tt.event.Err(); !errors.Is(got, tt.err) || (tt.err == nil && got != nil) {
			t.Fatalf("%s Err() = %v", tt.event.Type, got)
		}
	}
}

func TestSyncDispatcherDeliversInOrder(t *testing.T) {
	d := newEventDispatcher(EventsConfig{Async: false}, discardLogger())
	defer d.Close()

	var got []EventType
	cancel := d.Subscribe(SinkFunc(func(_ context.Context, e Event) { got = append(got, e.Type) }))

	d.Emit(context.Background(), Event{Type: EventCreated})
	d.Emit(context.Background(), Event{Type: EventCleared})
	cancel()
	d.Emit(context.Background(), Event{Type: EventRestored})

	if len(got) != 2 || got[0] != EventCreated || got[1] != EventCleared {
		t.Fatalf("unexpected delivery %v", got)
	}
}

func TestDispatcherRecoversSinkPanic(t *testing.T) {
	d := newEventDispatcher(EventsConfig{Async: false}, discardLogger())
	defer d.Close()

	d.Subscribe(SinkFunc(func(context.Context, Event) { panic("boom") }))
	delivered := false
	d.Subscribe(SinkFunc(func(context.Context, Event) { delivered = true }))

	d.Emit(context.Background(), Event{Type: EventCreated})
	if !delivered {
		t.Fatal("panicking sink blocked later subscribers")
	}
}

func TestAsyncDispatcherDropsWhenFull(t *testing.T) {
	d := newEventDispatcher(EventsConfig{Async: true, BufferSize: 1, DropIfFull: true}, discardLogger())

	release := make(chan struct{})
	var mu sync.Mutex
	var seen int
	d.Subscribe(SinkFunc(func(context.Context, Event) {
		<-release
		mu.Lock()
		seen++
		mu.Unlock()
	}))

	// The first event may already be held by the worker; emit enough to overflow.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: EventExtended})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}

	close(release)
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if uint64(seen)+d.Dropped() != 10 {
		t.Fatalf("seen %d + dropped %d != 10", seen, d.Dropped())
	}

	d.Emit(context.Background(), Event{Type: EventCreated})
}

func TestChannelSink(t *testing.T) {
	s := NewChannelSink(1)
	s.Emit(context.Background(), Event{Type: EventWarning, MinutesRemaining: 3})

	select {
	case e := <-s.Events():
		if e.MinutesRemaining != 3 {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Emit(context.Background(), Event{Type: EventCreated})
	s.Emit(ctx, Event{Type: EventCleared})
}

func TestJSONWriterSinkOmitsCredentials(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{
		Type:      EventCreated,
		Kind:      "admin",
		SessionID: "session_1_abc",
		Timestamp: time.UnixMilli(0).UTC(),
	})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if decoded["type"] != "session.created" || decoded["session_id"] != "session_1_abc" {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if _, ok := decoded["reason"]; ok {
		t.Fatal("empty reason must be omitted")
	}
}
