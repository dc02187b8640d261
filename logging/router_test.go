package logging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/odina101/cossacks-web/logging"
	"github.com/odina101/cossacks-web/logging/sinks"
)

func newTestRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.Memory) {
	t.Helper()
	memory := sinks.NewMemory()
	clock := logging.ClockFunc(func() time.Time { return time.Unix(1700000000, 0) })
	router, err := logging.NewRouter(clock, cfg, []logging.NamedSink{{Name: logging.SinkMemory, Sink: memory}}, nil)
	if err != nil {
		t.Fatalf("failed to construct router: %v", err)
	}
	return router, memory
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("failed to close router: %v", err)
	}
}

func TestRouterDeliversEventsOnClose(t *testing.T) {
	router, memory := newTestRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{Type: "test.one", Tick: 1, Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "test.two", Tick: 2, Severity: logging.SeverityWarn})
	router.Publish(context.Background(), logging.Event{Tick: 3})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "test.one" || events[1].Type != "test.two" {
		t.Fatalf("unexpected event order: %+v", events)
	}
	if events[0].Time.IsZero() {
		t.Fatalf("expected router to stamp event time")
	}
	if stats := router.Stats(); stats.EventsTotal != 2 {
		t.Fatalf("expected 2 routed events, got %d", stats.EventsTotal)
	}
}

func TestRouterFiltersBySeverityAndMergesFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	cfg.Fields = map[string]any{"scenario": "skirmish"}
	router, memory := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "test.debug", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "test.error", Severity: logging.SeverityError, Extra: map[string]any{"scenario": "override"}})
	closeRouter(t, router)

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event above threshold, got %d", len(events))
	}
	if got := events[0].Extra["scenario"]; got != "override" {
		t.Fatalf("expected publisher field to win, got %v", got)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	router, memory := newTestRouter(t, logging.DefaultConfig())
	closeRouter(t, router)

	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(memory.Events()) != 0 {
		t.Fatalf("expected no events after close")
	}
}

type failingSink struct{}

func (failingSink) Write(logging.Event) error { return errors.New("disk full") }

func (failingSink) Close(context.Context) error { return nil }

func TestRouterCountsSinkFailures(t *testing.T) {
	memory := sinks.NewMemory()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{
		{Name: "broken", Sink: failingSink{}},
		{Name: logging.SinkMemory, Sink: memory},
	}, nil)
	if err != nil {
		t.Fatalf("failed to construct router: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "test.one", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "test.two", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	if len(memory.Events()) != 2 {
		t.Fatalf("expected healthy sink to keep receiving events, got %d", len(memory.Events()))
	}
	if got := router.Stats().SinkFailures["broken"]; got != 2 {
		t.Fatalf("expected 2 failures for broken sink, got %d", got)
	}
}

func TestRouterRejectsDuplicateSinkNames(t *testing.T) {
	named := []logging.NamedSink{
		{Name: logging.SinkMemory, Sink: sinks.NewMemory()},
		{Name: logging.SinkMemory, Sink: sinks.NewMemory()},
	}
	if _, err := logging.NewRouter(nil, logging.DefaultConfig(), named, nil); err == nil {
		t.Fatalf("expected duplicate sink error")
	}
}

func TestWithFieldsAddsMissingKeys(t *testing.T) {
	memory := sinks.NewMemory()
	pub := logging.WithFields(memory, map[string]any{"agent": "a1", "run": 7})

	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"agent": "a2"}})

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["agent"] != "a2" || events[0].Extra["run"] != 7 {
		t.Fatalf("unexpected extra fields: %+v", events[0].Extra)
	}
}

func TestParseSeverity(t *testing.T) {
	for raw, want := range map[string]logging.Severity{
		"debug":   logging.SeverityDebug,
		"":        logging.SeverityInfo,
		"WARNING": logging.SeverityWarn,
		"error":   logging.SeverityError,
	} {
		got, err := logging.ParseSeverity(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("expected %v for %q, got %v", want, raw, got)
		}
	}
	if _, err := logging.ParseSeverity("loud"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestMetricsAddAndStore(t *testing.T) {
	var metrics logging.Metrics
	metrics.TelemetryAdd("ticks", 2)
	metrics.TelemetryStore("ticks", 5)
	metrics.TelemetryAdd("ticks", 3)

	if got := metrics.Snapshot()["ticks"]; got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}
