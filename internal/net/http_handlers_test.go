package net

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/odina101/cossacks-web/internal/anim"
	"github.com/odina101/cossacks-web/internal/net/ws"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/internal/world"
	"github.com/odina101/cossacks-web/logging"
	loggingorders "github.com/odina101/cossacks-web/logging/orders"
)

func newTestHandler(t *testing.T) (http.Handler, *world.World) {
	t.Helper()
	grid, err := terrain.NewGrid(6, 6, 32)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	catalog := anim.NewCatalog()
	_ = catalog.Register("KAZ", anim.VariantStand, 8, 64, 64)
	_ = catalog.Register("KAZ", anim.VariantWalk, 12, 64, 64)

	metrics := &logging.Metrics{}
	w, err := world.New(world.DefaultConfig(), world.Deps{
		Terrain: grid,
		Catalog: catalog,
		Metrics: telemetry.WrapMetrics(metrics),
	})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if _, err := w.AddAgent(unit.Config{ID: "kaz-1", Character: "KAZ", X: 16, Y: 16}); err != nil {
		t.Fatalf("agent: %v", err)
	}

	hub := ws.NewHub(ws.HubConfig{})
	handler := NewHTTPHandler(w, hub, HTTPHandlerConfig{
		Metrics:     metrics,
		RouterStats: func() logging.RouterStats { return logging.RouterStats{EventsTotal: 7} },
	})
	return handler, w
}

func TestHealth(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsReportsWorld(t *testing.T) {
	handler, w := newTestHandler(t)
	w.Tick()
	w.Tick()

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload struct {
		TotalTicks   uint64            `json:"totalTicks"`
		Agents       int               `json:"agents"`
		TickPeriodMs int64             `json:"tickPeriodMillis"`
		Telemetry    map[string]uint64 `json:"telemetry"`
		Logging      map[string]uint64 `json:"logging"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics payload: %v", err)
	}
	if payload.TotalTicks != 2 || payload.Agents != 1 {
		t.Fatalf("expected 2 ticks and 1 agent, got %+v", payload)
	}
	if payload.TickPeriodMs != 30 {
		t.Fatalf("expected tick period 30ms, got %d", payload.TickPeriodMs)
	}
	if payload.Telemetry["world_ticks_total"] != 2 {
		t.Fatalf("expected world_ticks_total 2, got %v", payload.Telemetry)
	}
	if payload.Logging["eventsTotal"] != 7 {
		t.Fatalf("expected router stats, got %v", payload.Logging)
	}
}

func TestOrdersEndpointStagesOrder(t *testing.T) {
	handler, w := newTestHandler(t)

	body := []byte(`{"type":"move","agentId":"kaz-1","x":120,"y":16}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d: %s", resp.Code, resp.Body.String())
	}
	var accepted map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted["orderId"] == "" {
		t.Fatalf("expected order id, got %v", accepted)
	}
	if w.PendingOrders() != 1 {
		t.Fatalf("expected 1 pending order, got %d", w.PendingOrders())
	}

	w.Tick()
	snap, _ := w.Agent("kaz-1")
	if !snap.Moving {
		t.Fatalf("expected agent to move after the next tick")
	}
}

func TestOrdersEndpointRejects(t *testing.T) {
	handler, _ := newTestHandler(t)

	t.Run("unknown agent", func(t *testing.T) {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{"type":"stop","agentId":"ghost"}`))))
		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.Code)
		}
		var rejected map[string]string
		if err := json.Unmarshal(resp.Body.Bytes(), &rejected); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rejected["reason"] != loggingorders.ReasonUnknownAgent {
			t.Fatalf("expected reason %q, got %v", loggingorders.ReasonUnknownAgent, rejected)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{`))))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/orders", nil))
		if resp.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", resp.Code)
		}
	})
}

func TestWorldEndpointReturnsSnapshot(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/world", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["type"] != "state" {
		t.Fatalf("expected state payload, got %v", payload["type"])
	}
	if agents, ok := payload["agents"].([]any); !ok || len(agents) != 1 {
		t.Fatalf("expected one agent, got %v", payload["agents"])
	}
}

func TestScenarioSchemaEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/scenario/schema", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var schema map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &schema); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if schema["title"] != "Cossacks Scenario" {
		t.Fatalf("expected scenario schema title, got %v", schema["title"])
	}
}
