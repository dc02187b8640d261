package sim

import (
	"errors"
	"testing"
)

type recordingMetrics struct {
	added  map[string]uint64
	stored map[string]uint64
}

func (m *recordingMetrics) Add(key string, delta uint64) {
	if m.added == nil {
		m.added = make(map[string]uint64)
	}
	m.added[key] += delta
}

func (m *recordingMetrics) Store(key string, value uint64) {
	if m.stored == nil {
		m.stored = make(map[string]uint64)
	}
	m.stored[key] = value
}

func TestOrderBufferWraparound(t *testing.T) {
	buffer := NewOrderBuffer(3, nil)
	orders := []Order{{AgentID: "a"}, {AgentID: "b"}, {AgentID: "c"}}
	for _, order := range orders {
		if !buffer.Push(order) {
			t.Fatalf("expected push to succeed for %+v", order)
		}
	}
	if buffer.Push(Order{AgentID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(orders) {
		t.Fatalf("expected %d orders, got %d", len(orders), len(drained))
	}
	for i, order := range drained {
		if order.AgentID != orders[i].AgentID {
			t.Fatalf("expected drain order %v, got %v", orders[i].AgentID, order.AgentID)
		}
	}
	for _, order := range []Order{{AgentID: "d"}, {AgentID: "e"}} {
		if !buffer.Push(order) {
			t.Fatalf("expected push to succeed after drain for %+v", order)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 || wrapped[0].AgentID != "d" || wrapped[1].AgentID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
	if buffer.Drain() != nil {
		t.Fatalf("expected empty drain to return nil")
	}
}

func TestOrderBufferMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	buffer := NewOrderBuffer(1, metrics)
	buffer.Push(Order{AgentID: "one"})
	if metrics.stored[orderBufferOccupancyMetricKey] != 1 {
		t.Fatalf("expected occupancy 1, got %d", metrics.stored[orderBufferOccupancyMetricKey])
	}
	buffer.Push(Order{AgentID: "two"})
	if metrics.added[orderBufferOverflowMetricKey] != 1 {
		t.Fatalf("expected one overflow, got %d", metrics.added[orderBufferOverflowMetricKey])
	}
	buffer.Drain()
	if metrics.stored[orderBufferOccupancyMetricKey] != 0 {
		t.Fatalf("expected occupancy reset after drain")
	}
}

func TestOrderValidate(t *testing.T) {
	cases := []struct {
		name  string
		order Order
		ok    bool
	}{
		{"move", Order{AgentID: "a", Type: OrderMove, Move: &MoveOrder{X: 1, Y: 2}}, true},
		{"move without destination", Order{AgentID: "a", Type: OrderMove}, false},
		{"route without destination", Order{AgentID: "a", Type: OrderRoute}, false},
		{"step", Order{AgentID: "a", Type: OrderStep, Step: &StepOrder{Direction: 4}}, true},
		{"step without payload", Order{AgentID: "a", Type: OrderStep}, false},
		{"spin", Order{AgentID: "a", Type: OrderSpin}, true},
		{"stop", Order{AgentID: "a", Type: OrderStop}, true},
		{"select without flag", Order{AgentID: "a", Type: OrderSelect}, false},
		{"missing agent", Order{Type: OrderStop}, false},
		{"unknown type", Order{AgentID: "a", Type: "dance"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.order.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid order, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidOrder) {
				t.Fatalf("expected ErrInvalidOrder, got %v", err)
			}
		})
	}
	if NewOrderID() == NewOrderID() {
		t.Fatalf("expected unique order ids")
	}
}
