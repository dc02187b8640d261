package sessions

import (
	"context"

	"github.com/odina101/cossacks-web/logging"
)

const (
	EventConnected    logging.EventType = "session.connected"
	EventDisconnected logging.EventType = "session.disconnected"
	// EventBroadcastDropped is emitted when a slow client misses a state frame.
	EventBroadcastDropped logging.EventType = "session.broadcast_dropped"
)

type SessionPayload struct {
	RemoteAddr  string `json:"remoteAddr,omitempty"`
	Subscribers int    `json:"subscribers"`
	Reason      string `json:"reason,omitempty"`
}

type DropPayload struct {
	Dropped uint64 `json:"dropped"`
	Buffer  int    `json:"buffer"`
}

func Connected(ctx context.Context, pub logging.Publisher, sessionID string, payload SessionPayload) {
	publish(ctx, pub, EventConnected, logging.SeverityInfo, sessionID, payload)
}

func Disconnected(ctx context.Context, pub logging.Publisher, sessionID string, payload SessionPayload) {
	publish(ctx, pub, EventDisconnected, logging.SeverityInfo, sessionID, payload)
}

func BroadcastDropped(ctx context.Context, pub logging.Publisher, tick uint64, sessionID string, payload DropPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBroadcastDropped,
		Tick:     tick,
		Actor:    sessionRef(sessionID),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, sessionID string, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    sessionRef(sessionID),
		Severity: severity,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}

func sessionRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindSession}
}
