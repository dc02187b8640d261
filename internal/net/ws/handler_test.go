package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/odina101/cossacks-web/internal/anim"
	"github.com/odina101/cossacks-web/internal/net/proto"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/internal/world"
	loggingorders "github.com/odina101/cossacks-web/logging/orders"
)

type sessionHarness struct {
	world *world.World
	hub   *Hub
	conn  *websocket.Conn
}

func newSessionHarness(t *testing.T) *sessionHarness {
	t.Helper()
	grid, err := terrain.NewGrid(8, 6, 32)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	grid.SetWalkable(7, 5, false)
	catalog := anim.NewCatalog()
	_ = catalog.Register("KAZ", anim.VariantStand, 8, 64, 64)
	_ = catalog.Register("KAZ", anim.VariantWalk, 12, 64, 64)

	hub := NewHub(HubConfig{})
	w, err := world.New(world.DefaultConfig(), world.Deps{
		Terrain: grid,
		Catalog: catalog,
		Hooks:   world.Hooks{AfterTick: hub.Broadcast},
	})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if _, err := w.AddAgent(unit.Config{ID: "kaz-1", Character: "KAZ", X: 16, Y: 16}); err != nil {
		t.Fatalf("agent: %v", err)
	}

	handler := NewHandler(hub, w, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, "tester"), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
		hub.Close()
	})
	return &sessionHarness{world: w, hub: hub, conn: conn}
}

func websocketURL(t *testing.T, serverURL, id string) string {
	t.Helper()
	parsed, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.Path = "/ws"
	query := parsed.Query()
	query.Set("id", id)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func (h *sessionHarness) send(t *testing.T, msg any) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (h *sessionHarness) read(t *testing.T) map[string]any {
	t.Helper()
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := h.conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode %s: %v", payload, err)
	}
	return decoded
}

func TestSessionInitialStateCarriesMap(t *testing.T) {
	h := newSessionHarness(t)

	initial := h.read(t)
	if initial["type"] != proto.TypeState || initial["resync"] != true {
		t.Fatalf("expected resync state frame, got %v", initial)
	}
	layout, ok := initial["map"].(map[string]any)
	if !ok {
		t.Fatalf("expected map info, got %v", initial["map"])
	}
	if layout["cols"].(float64) != 8 || layout["rows"].(float64) != 6 {
		t.Fatalf("expected 8x6 map, got %v", layout)
	}
	agents := initial["agents"].([]any)
	if len(agents) != 1 || agents[0].(map[string]any)["id"] != "kaz-1" {
		t.Fatalf("expected kaz-1 in initial state, got %v", agents)
	}
}

func TestSessionOrderAckThenBroadcast(t *testing.T) {
	h := newSessionHarness(t)
	h.read(t)

	h.send(t, map[string]any{"type": proto.TypeMove, "agentId": "kaz-1", "x": 100, "y": 16, "seq": 1})
	ack := h.read(t)
	if ack["type"] != proto.TypeCommandAck || ack["seq"].(float64) != 1 {
		t.Fatalf("expected ack for seq 1, got %v", ack)
	}
	if id, _ := ack["orderId"].(string); id == "" {
		t.Fatalf("expected order id in ack, got %v", ack)
	}
	if h.world.PendingOrders() != 1 {
		t.Fatalf("expected 1 pending order, got %d", h.world.PendingOrders())
	}

	h.world.Tick()

	state := h.read(t)
	if state["type"] != proto.TypeState || state["totalTicks"].(float64) != 1 {
		t.Fatalf("expected state for tick 1, got %v", state)
	}
	agent := state["agents"].([]any)[0].(map[string]any)
	if agent["moving"] != true {
		t.Fatalf("expected agent to be moving, got %v", agent)
	}
	if agent["direction"].(float64) != 12 {
		t.Fatalf("expected direction 12, got %v", agent["direction"])
	}
	if agent["x"].(float64) != 20 {
		t.Fatalf("expected x=20 after one tick, got %v", agent["x"])
	}
}

func TestSessionDuplicateSequenceIsAckedOnce(t *testing.T) {
	h := newSessionHarness(t)
	h.read(t)

	h.send(t, map[string]any{"type": proto.TypeSpin, "agentId": "kaz-1", "seq": 5})
	h.read(t)
	h.send(t, map[string]any{"type": proto.TypeSpin, "agentId": "kaz-1", "seq": 5})
	dup := h.read(t)
	if dup["type"] != proto.TypeCommandAck || dup["seq"].(float64) != 5 {
		t.Fatalf("expected duplicate ack, got %v", dup)
	}
	if _, ok := dup["orderId"]; ok {
		t.Fatalf("expected duplicate ack without order id, got %v", dup)
	}
	if h.world.PendingOrders() != 1 {
		t.Fatalf("expected duplicate to be ignored, got %d pending", h.world.PendingOrders())
	}
}

func TestSessionRejectsOrders(t *testing.T) {
	h := newSessionHarness(t)
	h.read(t)

	cases := []struct {
		msg    map[string]any
		reason string
	}{
		{msg: map[string]any{"type": proto.TypeStop, "agentId": "ghost", "seq": 1}, reason: loggingorders.ReasonUnknownAgent},
		{msg: map[string]any{"type": proto.TypeStep, "agentId": "kaz-1", "seq": 2}, reason: loggingorders.ReasonInvalidOrder},
		{msg: map[string]any{"type": "teleport", "agentId": "kaz-1", "seq": 3}, reason: loggingorders.ReasonInvalidOrder},
	}
	for _, tc := range cases {
		h.send(t, tc.msg)
		reject := h.read(t)
		if reject["type"] != proto.TypeCommandReject {
			t.Fatalf("expected reject for %v, got %v", tc.msg, reject)
		}
		if reject["reason"] != tc.reason {
			t.Fatalf("expected reason %q, got %v", tc.reason, reject["reason"])
		}
		if reject["seq"].(float64) != float64(tc.msg["seq"].(int)) {
			t.Fatalf("expected seq %v, got %v", tc.msg["seq"], reject["seq"])
		}
	}
	if h.world.PendingOrders() != 0 {
		t.Fatalf("expected no staged orders, got %d", h.world.PendingOrders())
	}
}

func TestSessionHeartbeat(t *testing.T) {
	h := newSessionHarness(t)
	h.read(t)

	sentAt := time.Now().UnixMilli()
	h.send(t, map[string]any{"type": proto.TypeHeartbeat, "sentAt": sentAt})
	reply := h.read(t)
	if reply["type"] != proto.TypeHeartbeat {
		t.Fatalf("expected heartbeat reply, got %v", reply)
	}
	if int64(reply["clientTime"].(float64)) != sentAt {
		t.Fatalf("expected clientTime %d, got %v", sentAt, reply["clientTime"])
	}
}

func TestSessionDuplicateIDIsRefused(t *testing.T) {
	h := newSessionHarness(t)
	h.read(t)

	handler := NewHandler(h.hub, h.world, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, "tester"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		defer resp.Body.Close()
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}
