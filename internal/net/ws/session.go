package ws

import (
	"github.com/gorilla/websocket"

	"github.com/odina101/cossacks-web/internal/net/intake"
	"github.com/odina101/cossacks-web/internal/net/proto"
)

// Serve runs a websocket session until the client disconnects. The first
// frame is a resync state message carrying the map layout. Order messages
// are staged for the next tick and answered with an ack or a reject when the
// client numbered them.
func (h *Handler) Serve(sessionID string, conn *websocket.Conn) {
	if h == nil || h.hub == nil || h.world == nil || conn == nil {
		return
	}

	initial := proto.NewStateMessage(h.world.Snapshot(), h.now().UnixMilli())
	initial.Resync = true
	if grid := h.world.Terrain(); grid != nil {
		cols, rows := grid.Dimensions()
		initial.Map = &proto.MapInfo{Cols: cols, Rows: rows, TileSize: grid.TileSize()}
	}
	data, err := proto.EncodeState(initial)
	if err != nil {
		h.logger.Printf("failed to marshal initial state for %s: %v", sessionID, err)
		conn.Close()
		return
	}

	sub, ok := h.hub.Subscribe(sessionID, conn, conn.RemoteAddr().String(), data)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session already connected")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	defer h.hub.Disconnect(sessionID)

	orders := intake.OrderContext{
		World: h.world,
		HasAgent: func(id string) bool {
			_, ok := h.world.Agent(id)
			return ok
		},
		Now: h.now,
	}

	conn.SetReadLimit(maxMessageSize)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", sessionID, err)
			continue
		}

		seq := msg.Sequence()

		writeJSON := func(data []byte, err error) bool {
			if err != nil {
				h.logger.Printf("failed to marshal response for %s: %v", sessionID, err)
				return true
			}
			return sub.WriteMessage(websocket.TextMessage, data) == nil
		}

		switch {
		case msg.Type == proto.TypeHeartbeat:
			now := h.now().UnixMilli()
			rtt := int64(0)
			if msg.SentAt > 0 && now >= msg.SentAt {
				rtt = now - msg.SentAt
			}
			if !writeJSON(proto.EncodeHeartbeat(proto.Heartbeat{
				ServerTime: now,
				ClientTime: msg.SentAt,
				RTTMillis:  rtt,
			})) {
				return
			}
		case proto.IsOrder(msg.Type) || seq > 0:
			if seq > 0 {
				if last := sub.LastCommandSeq(); last > 0 && seq <= last {
					if !writeJSON(proto.EncodeCommandAck(proto.CommandAck{Seq: seq})) {
						return
					}
					continue
				}
			}
			order, ok, reason := intake.StageClientOrder(orders, msg)
			if !ok {
				h.logger.Printf("order %q from %s rejected: %s", msg.Type, sessionID, reason)
				if seq > 0 && !writeJSON(proto.EncodeCommandReject(proto.CommandReject{
					Seq:    seq,
					Reason: reason,
					Retry:  intake.Retryable(reason),
				})) {
					return
				}
				continue
			}
			if seq > 0 {
				if !writeJSON(proto.EncodeCommandAck(proto.CommandAck{
					Seq:     seq,
					OrderID: order.ID,
					Tick:    h.world.TotalTicks(),
				})) {
					return
				}
				sub.StoreLastCommandSeq(seq)
			}
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, sessionID)
		}
	}
}
