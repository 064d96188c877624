package audit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	if d := NewDispatcher(Config{}, &countingSink{}); d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	// Nil dispatchers must stay callable.
	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero dropped on nil dispatcher")
	}
}

func TestDispatcherDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), Event{EventType: "e1"})
	dispatcher.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestDispatcherBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), Event{EventType: "e1"})
	dispatcher.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{})

	dispatcher.Emit(context.Background(), Event{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), Event{EventType: "e2"})
}

func TestChannelSinkDeliversEvents(t *testing.T) {
	sink := NewChannelSink(2)
	sink.Emit(context.Background(), Event{EventType: "prompt_accepted", IdentityID: "u1"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "prompt_accepted" || ev.IdentityID != "u1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event on channel")
	}
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		Timestamp:  time.Now().UTC(),
		EventType:  "ceremony_completed",
		Flow:       "sign_in",
		IdentityID: "u1",
		Success:    true,
	})

	out := buf.String()
	if !strings.Contains(out, "ceremony_completed") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !strings.Contains(out, "\"identity_id\":\"u1\"") {
		t.Fatal("expected JSON log line to contain identity id")
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected newline-terminated log line")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
