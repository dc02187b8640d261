package proto

import (
	"encoding/json"
	"testing"

	"github.com/odina101/cossacks-web/internal/sim"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/internal/world"
)

func TestClientOrder(t *testing.T) {
	direction := 7
	selected := true

	t.Run("move order", func(t *testing.T) {
		order, ok := ClientOrder(ClientMessage{Type: TypeMove, AgentID: "a", X: 12.5, Y: -4})
		if !ok {
			t.Fatalf("expected move order to be recognized")
		}
		if order.Type != sim.OrderMove || order.Move == nil {
			t.Fatalf("expected move payload, got %+v", order)
		}
		if order.Move.X != 12.5 || order.Move.Y != -4 {
			t.Fatalf("unexpected destination %+v", order.Move)
		}
		if order.AgentID != "a" {
			t.Fatalf("expected agent a, got %q", order.AgentID)
		}
	})

	t.Run("route order", func(t *testing.T) {
		order, ok := ClientOrder(ClientMessage{Type: TypeRoute, AgentID: "a", X: 1, Y: 2})
		if !ok || order.Type != sim.OrderRoute || order.Move == nil {
			t.Fatalf("expected route order, got %+v (ok=%v)", order, ok)
		}
	})

	t.Run("step order", func(t *testing.T) {
		order, ok := ClientOrder(ClientMessage{Type: TypeStep, AgentID: "a", Direction: &direction, Priority: 3})
		if !ok || order.Step == nil {
			t.Fatalf("expected step order, got %+v (ok=%v)", order, ok)
		}
		if order.Step.Direction != 7 || order.Step.Priority != 3 {
			t.Fatalf("unexpected step payload %+v", order.Step)
		}
	})

	t.Run("step without direction", func(t *testing.T) {
		if _, ok := ClientOrder(ClientMessage{Type: TypeStep, AgentID: "a"}); ok {
			t.Fatalf("expected step without direction to be refused")
		}
	})

	t.Run("select order", func(t *testing.T) {
		order, ok := ClientOrder(ClientMessage{Type: TypeSelect, AgentID: "a", Selected: &selected})
		if !ok || order.Select == nil || !order.Select.Selected {
			t.Fatalf("expected select order, got %+v (ok=%v)", order, ok)
		}
	})

	t.Run("heartbeat is not an order", func(t *testing.T) {
		if _, ok := ClientOrder(ClientMessage{Type: TypeHeartbeat}); ok {
			t.Fatalf("expected heartbeat to be refused as an order")
		}
		if IsOrder(TypeHeartbeat) {
			t.Fatalf("expected IsOrder to be false for heartbeat")
		}
	})
}

func TestDecodeClientMessage(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"spin","agentId":"a","priority":2,"seq":9}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Ver != Version {
		t.Fatalf("expected version to default to %d, got %d", Version, msg.Ver)
	}
	if msg.Sequence() != 9 {
		t.Fatalf("expected seq 9, got %d", msg.Sequence())
	}

	if _, err := DecodeClientMessage([]byte(`{"ver":2,"type":"spin"}`)); err == nil {
		t.Fatalf("expected unsupported version to fail")
	}
	if _, err := DecodeClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}

func TestEncodeStateIncludesAgents(t *testing.T) {
	msg := NewStateMessage(world.Snapshot{
		Tick:       3,
		Epoch:      1,
		TotalTicks: 1027,
		Agents:     []unit.Snapshot{{ID: "a", X: 1, Y: 2, Direction: 12}},
	}, 99)
	msg.Resync = true
	msg.Map = &MapInfo{Cols: 4, Rows: 3, TileSize: 32}

	data, err := EncodeState(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != TypeState {
		t.Fatalf("expected type %q, got %v", TypeState, decoded["type"])
	}
	if decoded["totalTicks"].(float64) != 1027 {
		t.Fatalf("expected totalTicks 1027, got %v", decoded["totalTicks"])
	}
	agents, ok := decoded["agents"].([]any)
	if !ok || len(agents) != 1 {
		t.Fatalf("expected one agent, got %v", decoded["agents"])
	}
	if _, ok := decoded["map"].(map[string]any); !ok {
		t.Fatalf("expected map info, got %v", decoded["map"])
	}
}

func TestEncodeStateEmptyAgentsIsArray(t *testing.T) {
	data, err := EncodeState(NewStateMessage(world.Snapshot{}, 0))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agents, ok := decoded["agents"].([]any); !ok || len(agents) != 0 {
		t.Fatalf("expected empty agents array, got %v", decoded["agents"])
	}
}

func TestEncodeCommandReject(t *testing.T) {
	data, err := EncodeCommandReject(CommandReject{Seq: 4, Reason: "queue_full", Retry: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != TypeCommandReject || decoded["reason"] != "queue_full" || decoded["retry"] != true {
		t.Fatalf("unexpected reject frame %v", decoded)
	}
}
