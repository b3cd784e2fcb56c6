package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
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

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversAllOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)
	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "sign_in_success"})
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "after_close"})
	if got := sink.count.Load(); got != 50 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh_success"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a blocked sink")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingHonorsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Emit(ctx, Event{EventType: "sign_out"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("blocking emit did not honor context cancellation")
	}

	close(sink.gate)
	d.Close()
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "sign_in_success", UserID: "42", Success: true})
	sink.Emit(context.Background(), Event{EventType: "refresh_failure", Error: "refresh_token_error"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "sign_in_success" || ev.UserID != "42" || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestChannelSinkBuffers(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: "a"})
	select {
	case ev := <-sink.Events():
		if ev.EventType != "a" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) { panic("sink failure") }

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{})
	d.Emit(context.Background(), Event{EventType: "sign_out"})
	d.Emit(context.Background(), Event{EventType: "sign_out"})
	d.Close()

	if d.Failed() != 2 || d.Delivered() != 0 {
		t.Fatalf("unexpected counters %s", d)
	}
}

func TestDispatcherStampsAndScrubs(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, Now: func() time.Time { return fixed }}, sink)

	meta := map[string]string{
		"code_kind":     "totp",
		"code":          "123456",
		"refresh_token": "rt-1",
		"Password":      "hunter2",
	}
	d.Emit(context.Background(), Event{EventType: "second_factor_failure", Metadata: meta})
	d.Close()

	ev := <-sink.Events()
	if !ev.Timestamp.Equal(fixed) || ev.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC stamp of the configured clock, got %v", ev.Timestamp)
	}
	if len(ev.Metadata) != 1 || ev.Metadata["code_kind"] != "totp" {
		t.Fatalf("unexpected metadata %v", ev.Metadata)
	}
	if len(meta) != 4 {
		t.Fatalf("caller metadata must not be modified")
	}
}

func TestScrubEmpty(t *testing.T) {
	if Scrub(nil) != nil || Scrub(map[string]string{}) != nil {
		t.Fatal("expected nil for empty metadata")
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))
	sink.Emit(context.Background(), Event{EventType: "sign_in_success", UserID: "7", Success: true})
	sink.Emit(context.Background(), Event{EventType: "refresh_failure", Error: "refresh_token_error", State: "RefreshFailed"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %q", buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first["level"] != "INFO" || first["user_id"] != "7" {
		t.Fatalf("unexpected first record %v", first)
	}
	if second["level"] != "WARN" || second["error"] != "refresh_token_error" || second["state"] != "RefreshFailed" {
		t.Fatalf("unexpected second record %v", second)
	}
}
