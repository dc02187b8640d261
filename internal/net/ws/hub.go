package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/odina101/cossacks-web/internal/net/proto"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/internal/world"
	"github.com/odina101/cossacks-web/logging"
	loggingsessions "github.com/odina101/cossacks-web/logging/sessions"
)

const (
	writeWait         = 10 * time.Second
	defaultSendBuffer = 32

	metricSubscribers      = "ws_subscribers"
	metricBroadcastTotal   = "ws_broadcast_total"
	metricBroadcastBytes   = "ws_broadcast_bytes_total"
	metricBroadcastDropped = "ws_broadcast_dropped_total"
)

type subscriberConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// subscriber owns the only goroutine allowed to write to its connection.
// Everything else hands frames over through send.
type subscriber struct {
	id        string
	conn      subscriberConn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	lastSeq   atomic.Uint64
	dropped   atomic.Uint64
	resync    resyncPolicy
}

func newSubscriber(id string, conn subscriberConn, buffer int) *subscriber {
	return &subscriber{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// WriteMessage queues a text frame. It returns an error once the subscriber
// is closed or when its backlog is full.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return errUnsupportedFrame
	}
	if !s.enqueue(data) {
		return errSubscriberBacklog
	}
	return nil
}

func (s *subscriber) LastCommandSeq() uint64 { return s.lastSeq.Load() }

func (s *subscriber) StoreLastCommandSeq(seq uint64) { s.lastSeq.Store(seq) }

func (s *subscriber) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *subscriber) writeLoop(onError func(error)) {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				onError(err)
				return
			}
		}
	}
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

type HubConfig struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	// SendBuffer bounds the frames queued per subscriber.
	SendBuffer int
	// BroadcastEvery skips ticks between state frames. 0 and 1 both send
	// every tick.
	BroadcastEvery uint64
	Now            func() time.Time
}

// Hub fans world snapshots out to every connected websocket session.
type Hub struct {
	cfg HubConfig

	mu          sync.Mutex
	subscribers map[string]*subscriber
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.BroadcastEvery == 0 {
		cfg.BroadcastEvery = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Hub{cfg: cfg, subscribers: make(map[string]*subscriber)}
}

// Subscribe registers conn under id and starts its writer. The initial frame,
// if any, is queued ahead of every broadcast. It returns false when the id is
// already connected.
func (h *Hub) Subscribe(id string, conn subscriberConn, remoteAddr string, initial []byte) (*subscriber, bool) {
	sub := newSubscriber(id, conn, h.cfg.SendBuffer)
	if len(initial) > 0 {
		sub.send <- initial
	}

	h.mu.Lock()
	if _, exists := h.subscribers[id]; exists {
		h.mu.Unlock()
		return nil, false
	}
	h.subscribers[id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.cfg.Metrics.Store(metricSubscribers, uint64(count))
	loggingsessions.Connected(context.Background(), h.cfg.Publisher, id, loggingsessions.SessionPayload{
		RemoteAddr:  remoteAddr,
		Subscribers: count,
	})

	go sub.writeLoop(func(err error) {
		h.cfg.Logger.Printf("failed to send update to %s: %v", id, err)
		h.disconnect(sub, "write failed")
	})
	return sub, true
}

// Disconnect removes the session and closes its connection.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	h.mu.Unlock()
	if !ok {
		return
	}
	h.disconnect(sub, "closed")
}

func (h *Hub) disconnect(sub *subscriber, reason string) {
	h.mu.Lock()
	current, ok := h.subscribers[sub.id]
	if ok && current == sub {
		delete(h.subscribers, sub.id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	sub.close()
	if !ok || current != sub {
		return
	}
	h.cfg.Metrics.Store(metricSubscribers, uint64(count))
	loggingsessions.Disconnected(context.Background(), h.cfg.Publisher, sub.id, loggingsessions.SessionPayload{
		Subscribers: count,
		Reason:      reason,
	})
}

// Subscribers reports the number of connected sessions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast encodes snapshot once and queues it for every session. It is
// installed as the world's AfterTick hook and never blocks on the network.
// Sessions that lost frames get their next frame flagged as a resync.
func (h *Hub) Broadcast(snapshot world.Snapshot) {
	if snapshot.TotalTicks%h.cfg.BroadcastEvery != 0 {
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	now := h.cfg.Now().UnixMilli()
	data, err := proto.EncodeState(proto.NewStateMessage(snapshot, now))
	if err != nil {
		h.cfg.Logger.Printf("failed to marshal state message: %v", err)
		return
	}
	var resyncData []byte

	h.cfg.Metrics.Add(metricBroadcastTotal, 1)
	for _, sub := range subs {
		sub.resync.NoteFrame()
		frame := data
		resync := sub.resync.Pending()
		if resync {
			if resyncData == nil {
				msg := proto.NewStateMessage(snapshot, now)
				msg.Resync = true
				if resyncData, err = proto.EncodeState(msg); err != nil {
					h.cfg.Logger.Printf("failed to marshal resync message: %v", err)
					return
				}
			}
			frame = resyncData
		}
		if sub.enqueue(frame) {
			h.cfg.Metrics.Add(metricBroadcastBytes, uint64(len(frame)))
			if resync {
				signal, _ := sub.resync.Consume()
				h.cfg.Logger.Printf("resync %s: %s", sub.id, signal.Summary())
			}
			continue
		}
		sub.resync.NoteDrop("backlog", snapshot.TotalTicks)
		dropped := sub.dropped.Add(1)
		h.cfg.Metrics.Add(metricBroadcastDropped, 1)
		loggingsessions.BroadcastDropped(context.Background(), h.cfg.Publisher, snapshot.TotalTicks, sub.id, loggingsessions.DropPayload{
			Dropped: dropped,
			Buffer:  h.cfg.SendBuffer,
		})
	}
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		h.disconnect(sub, "shutdown")
	}
}
