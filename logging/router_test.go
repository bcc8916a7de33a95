package logging

import (
	"context"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestRouterForwardsEventsAboveMinimumSeverity(t *testing.T) {
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.MinimumSeverity = SeverityInfo
	cfg.Fields = map[string]any{"region": "demo"}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	router, err := NewRouter(ClockFunc(func() time.Time { return fixed }), cfg, []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	router.Publish(context.Background(), Event{Type: "silk.debug", Severity: SeverityDebug})
	router.Publish(context.Background(), Event{Type: "silk.info", Severity: SeverityInfo, Extra: map[string]any{"region": "own"}})
	router.Publish(context.Background(), Event{Severity: SeverityError})

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", len(events))
	}
	if events[0].Type != "silk.info" {
		t.Fatalf("unexpected event type %q", events[0].Type)
	}
	if !events[0].Time.Equal(fixed) {
		t.Fatalf("expected clock time to be stamped, got %v", events[0].Time)
	}
	if events[0].Extra["region"] != "own" {
		t.Fatalf("expected publisher extra to win over router fields, got %v", events[0].Extra["region"])
	}
	if !sink.closed {
		t.Fatalf("expected sink to be closed")
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected 1 counted event, got %d", stats.EventsTotal)
	}
	if got := router.Metrics().Snapshot()["events.silk.info"]; got != 1 {
		t.Fatalf("expected per-type metric to be 1, got %d", got)
	}
}

func TestRouterPublishAfterCloseIsIgnored(t *testing.T) {
	sink := &captureSink{}
	router, err := NewRouter(nil, DefaultConfig(), []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	router.Publish(context.Background(), Event{Type: "silk.late", Severity: SeverityError})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	if len(sink.snapshot()) != 0 {
		t.Fatalf("expected no events after close")
	}
	if router.Sink("capture") != sink {
		t.Fatalf("expected named sink lookup to return the capture sink")
	}
}

func TestRouterBuildsOneBoundedWorkerPerSink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 4
	router, err := NewRouter(nil, cfg, []NamedSink{{Name: "capture", Sink: &captureSink{}}, {Name: "missing"}})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	defer router.Close(context.Background())

	if len(router.sinks) != 1 {
		t.Fatalf("expected nil sinks to be skipped, got %d workers", len(router.sinks))
	}
	if got := cap(router.sinks[0].events); got != 32 {
		t.Fatalf("expected the sink buffer raised to 32, got %d", got)
	}
}

func TestWithFieldsStampsExtras(t *testing.T) {
	var got Event
	base := PublisherFunc(func(_ context.Context, event Event) { got = event })
	pub := WithFields(base, map[string]any{"actor": "a1"})
	pub.Publish(context.Background(), Event{Type: "silk.test"})
	if got.Extra["actor"] != "a1" {
		t.Fatalf("expected actor extra, got %v", got.Extra)
	}
	if WithFields(nil, nil) == nil {
		t.Fatalf("expected nop publisher for nil input")
	}
}

func TestMetricsAddAndStore(t *testing.T) {
	var m Metrics
	m.TelemetryAdd("ticks", 2)
	m.TelemetryAdd("ticks", 3)
	m.TelemetryStore("bridges", 7)
	snapshot := m.Snapshot()
	if snapshot["ticks"] != 5 || snapshot["bridges"] != 7 {
		t.Fatalf("unexpected snapshot %v", snapshot)
	}
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "bridges" {
		t.Fatalf("unexpected keys %v", keys)
	}
	var nilMetrics *Metrics
	nilMetrics.TelemetryAdd("ignored", 1)
}

func TestParseSeverity(t *testing.T) {
	if ParseSeverity("warn") != SeverityWarn || ParseSeverity("bogus") != SeverityInfo {
		t.Fatalf("unexpected severity parsing")
	}
	if SeverityError.String() != "error" {
		t.Fatalf("unexpected severity string %q", SeverityError.String())
	}
}
