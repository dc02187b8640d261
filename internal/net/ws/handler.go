package ws

import (
	"errors"
	nethttp "net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/odina101/cossacks-web/internal/sim"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/internal/world"
)

const maxMessageSize = 4096

var (
	errUnsupportedFrame  = errors.New("ws: only text frames are supported")
	errSubscriberBacklog = errors.New("ws: subscriber backlog full")
)

// World is the part of the simulation a session talks to.
type World interface {
	Enqueue(order sim.Order) (bool, string)
	Snapshot() world.Snapshot
	TotalTicks() uint64
	Agent(id string) (unit.Snapshot, bool)
	Terrain() terrain.Terrain
}

type HandlerConfig struct {
	Logger telemetry.Logger
	Now    func() time.Time
}

// Handler upgrades HTTP requests into websocket sessions.
type Handler struct {
	hub      *Hub
	world    World
	logger   telemetry.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, w World, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		world:    w,
		logger:   logger,
		now:      now,
		upgrader: upgrader,
	}
}

// Handle serves /ws. Clients may pick their session id with ?id=; otherwise
// one is generated.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	sessionID := r.URL.Query().Get("id")
	if sessionID == "" {
		sessionID = "session-" + uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", sessionID, err)
		return
	}

	h.Serve(sessionID, conn)
}
