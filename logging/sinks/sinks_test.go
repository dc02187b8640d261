package sinks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/odina101/cossacks-web/logging"
)

func sampleEvent(tick uint64) logging.Event {
	return logging.Event{
		Type:      "order.issued",
		Tick:      tick,
		Time:      time.Unix(1700000000, 0).UTC(),
		Actor:     logging.AgentRef("a1"),
		Severity:  logging.SeverityInfo,
		Category:  logging.CategoryOrders,
		Payload:   map[string]any{"kind": "move"},
		CommandID: "order-1",
	}
}

func TestJSONSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	for tick := uint64(1); tick <= 2; tick++ {
		if err := sink.Write(sampleEvent(tick)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if decoded["severity"] != "info" || decoded["commandId"] != "order-1" {
		t.Fatalf("unexpected wire fields: %+v", decoded)
	}
}

func TestZstdSinkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewZstd(&buf)
	if err != nil {
		t.Fatalf("failed to construct sink: %v", err)
	}
	for tick := uint64(1); tick <= 3; tick++ {
		if err := sink.Write(sampleEvent(tick)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := sink.Write(sampleEvent(4)); err == nil {
		t.Fatalf("expected write after close to fail")
	}

	dec, err := zstd.NewReader(&buf)
	if err != nil {
		t.Fatalf("failed to open decoder: %v", err)
	}
	defer dec.Close()

	scanner := bufio.NewScanner(dec)
	ticks := make([]float64, 0, 3)
	for scanner.Scan() {
		var decoded map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		ticks = append(ticks, decoded["tick"].(float64))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(ticks) != 3 || ticks[0] != 1 || ticks[2] != 3 {
		t.Fatalf("unexpected ticks decoded: %v", ticks)
	}
}

func TestConsoleSinkFormatsEntity(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, logging.ConsoleConfig{ShowPayload: true})
	if err := sink.Write(sampleEvent(9)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[order.issued]", "tick=9", "actor=agent:a1", "severity=info", "order=order-1", `payload={"kind":"move"}`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestMemorySinkFiltersByType(t *testing.T) {
	sink := NewMemory()
	sink.Publish(context.Background(), logging.Event{Type: "a"})
	sink.Publish(context.Background(), logging.Event{Type: "b"})
	sink.Publish(context.Background(), logging.Event{Type: "a"})

	if got := len(sink.EventsOfType("a")); got != 2 {
		t.Fatalf("expected 2 events of type a, got %d", got)
	}
	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("expected reset to clear events, got %d", got)
	}
}
