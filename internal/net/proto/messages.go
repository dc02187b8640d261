package proto

import (
	"encoding/json"
	"fmt"

	"github.com/odina101/cossacks-web/internal/sim"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/internal/world"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeState         = "state"
)

// Client message type identifiers.
const (
	TypeMove      = "move"
	TypeRoute     = "route"
	TypeStep      = "step"
	TypeSpin      = "spin"
	TypeStop      = "stop"
	TypeSelect    = "select"
	TypeHeartbeat = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeState         = typeState
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver       int     `json:"ver,omitempty"`
	Type      string  `json:"type"`
	AgentID   string  `json:"agentId,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction *int    `json:"direction,omitempty"`
	Priority  int     `json:"priority,omitempty"`
	Selected  *bool   `json:"selected,omitempty"`
	SentAt    int64   `json:"sentAt,omitempty"`
	Seq       *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// Sequence returns the client sequence number, or 0 when none was sent.
func (m ClientMessage) Sequence() uint64 {
	if m.Seq == nil {
		return 0
	}
	return *m.Seq
}

// ClientOrder converts an order message into a simulation order. Identity and
// timestamps are populated when the order is staged.
func ClientOrder(msg ClientMessage) (sim.Order, bool) {
	order := sim.Order{AgentID: msg.AgentID}
	switch msg.Type {
	case TypeMove:
		order.Type = sim.OrderMove
		order.Move = &sim.MoveOrder{X: msg.X, Y: msg.Y}
	case TypeRoute:
		order.Type = sim.OrderRoute
		order.Move = &sim.MoveOrder{X: msg.X, Y: msg.Y}
	case TypeStep:
		if msg.Direction == nil {
			return sim.Order{}, false
		}
		order.Type = sim.OrderStep
		order.Step = &sim.StepOrder{Direction: *msg.Direction, Priority: msg.Priority}
	case TypeSpin:
		order.Type = sim.OrderSpin
		order.Spin = &sim.SpinOrder{Priority: msg.Priority}
	case TypeStop:
		order.Type = sim.OrderStop
	case TypeSelect:
		if msg.Selected == nil {
			return sim.Order{}, false
		}
		order.Type = sim.OrderSelect
		order.Select = &sim.SelectOrder{Selected: *msg.Selected}
	default:
		return sim.Order{}, false
	}
	return order, true
}

// IsOrder reports whether msg carries a simulation order.
func IsOrder(msgType string) bool {
	switch msgType {
	case TypeMove, TypeRoute, TypeStep, TypeSpin, TypeStop, TypeSelect:
		return true
	default:
		return false
	}
}

// CommandAck describes an acknowledgement of a staged order.
type CommandAck struct {
	Seq     uint64
	OrderID string
	Tick    uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver     int    `json:"ver"`
		Type    string `json:"type"`
		Seq     uint64 `json:"seq"`
		OrderID string `json:"orderId,omitempty"`
		Tick    uint64 `json:"tick,omitempty"`
	}{
		Ver:     Version,
		Type:    typeCommandAck,
		Seq:     msg.Seq,
		OrderID: msg.OrderID,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that an order was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
		Retry:  msg.Retry,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// MapInfo describes the terrain grid so clients can project coordinates.
type MapInfo struct {
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`
	TileSize float64 `json:"tileSize"`
}

// StateMessage is the per-tick world broadcast. The first message of a
// session sets Resync and carries the map layout.
type StateMessage struct {
	Ver        int             `json:"ver"`
	Type       string          `json:"type"`
	ServerTime int64           `json:"serverTime"`
	Tick       uint64          `json:"tick"`
	Epoch      uint64          `json:"epoch"`
	TotalTicks uint64          `json:"totalTicks"`
	Agents     []unit.Snapshot `json:"agents"`
	Resync     bool            `json:"resync,omitempty"`
	Map        *MapInfo        `json:"map,omitempty"`
}

// NewStateMessage wraps a world snapshot.
func NewStateMessage(snapshot world.Snapshot, serverTime int64) StateMessage {
	agents := snapshot.Agents
	if agents == nil {
		agents = []unit.Snapshot{}
	}
	return StateMessage{
		Ver:        Version,
		Type:       typeState,
		ServerTime: serverTime,
		Tick:       snapshot.Tick,
		Epoch:      snapshot.Epoch,
		TotalTicks: snapshot.TotalTicks,
		Agents:     agents,
	}
}

// EncodeState renders a state message.
func EncodeState(msg StateMessage) ([]byte, error) {
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Type == "" {
		msg.Type = typeState
	}
	return json.Marshal(msg)
}
