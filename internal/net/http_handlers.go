package net

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"time"

	"github.com/odina101/cossacks-web/internal/net/intake"
	"github.com/odina101/cossacks-web/internal/net/proto"
	"github.com/odina101/cossacks-web/internal/net/ws"
	"github.com/odina101/cossacks-web/internal/observability"
	"github.com/odina101/cossacks-web/internal/scenario"
	"github.com/odina101/cossacks-web/internal/telemetry"
	"github.com/odina101/cossacks-web/internal/world"
	"github.com/odina101/cossacks-web/logging"
)

const maxOrderBody = 4096

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    telemetry.Logger
	// Metrics and RouterStats feed /diagnostics. Both are optional.
	Metrics       *logging.Metrics
	RouterStats   func() logging.RouterStats
	Observability observability.Config
	Now           func() time.Time
}

// NewHTTPHandler wires the HTTP surface of a running world.
func NewHTTPHandler(w *world.World, hub *ws.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(rw nethttp.ResponseWriter, r *nethttp.Request) {
		rw.Header().Set("Content-Type", "text/plain")
		rw.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(rw nethttp.ResponseWriter, r *nethttp.Request) {
		cfgWorld := w.Config()
		payload := struct {
			Status       string            `json:"status"`
			ServerTime   int64             `json:"serverTime"`
			Tick         uint64            `json:"tick"`
			Epoch        uint64            `json:"epoch"`
			TotalTicks   uint64            `json:"totalTicks"`
			Agents       int               `json:"agents"`
			Running      bool              `json:"running"`
			TickPeriodMs int64             `json:"tickPeriodMillis"`
			EpochLength  int               `json:"epochLength"`
			Subscribers  int               `json:"subscribers"`
			Telemetry    map[string]uint64 `json:"telemetry,omitempty"`
			Logging      any               `json:"logging,omitempty"`
		}{
			Status:       "ok",
			ServerTime:   now().UnixMilli(),
			Tick:         w.TickCount(),
			Epoch:        w.EpochCount(),
			TotalTicks:   w.TotalTicks(),
			Agents:       len(w.AgentIDs()),
			Running:      w.Running(),
			TickPeriodMs: cfgWorld.TickPeriod.Milliseconds(),
			EpochLength:  cfgWorld.EpochLength,
			Telemetry:    cfg.Metrics.Snapshot(),
		}
		if hub != nil {
			payload.Subscribers = hub.Subscribers()
		}
		if cfg.RouterStats != nil {
			payload.Logging = cfg.RouterStats()
		}
		writeJSON(rw, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/world", func(rw nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(rw, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(rw, nethttp.StatusOK, proto.NewStateMessage(w.Snapshot(), now().UnixMilli()))
	})

	mux.HandleFunc("/orders", func(rw nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(rw, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxOrderBody))
		if err != nil {
			httpError(rw, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		msg, err := proto.DecodeClientMessage(raw)
		if err != nil {
			httpError(rw, "invalid payload", nethttp.StatusBadRequest)
			return
		}

		ctx := intake.OrderContext{
			World: w,
			HasAgent: func(id string) bool {
				_, ok := w.Agent(id)
				return ok
			},
			Now: now,
		}
		order, ok, reason := intake.StageClientOrder(ctx, msg)
		if !ok {
			logger.Printf("http order %q rejected: %s", msg.Type, reason)
			status := nethttp.StatusUnprocessableEntity
			if intake.Retryable(reason) {
				status = nethttp.StatusServiceUnavailable
			}
			writeJSON(rw, status, struct {
				Status string `json:"status"`
				Reason string `json:"reason"`
			}{Status: "rejected", Reason: reason})
			return
		}
		writeJSON(rw, nethttp.StatusAccepted, struct {
			Status  string `json:"status"`
			OrderID string `json:"orderId"`
		}{Status: "accepted", OrderID: order.ID})
	})

	mux.HandleFunc("/scenario/schema", func(rw nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(rw, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		data, err := scenario.SchemaJSON()
		if err != nil {
			httpError(rw, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/schema+json")
		rw.Write(data)
	})

	cfg.Observability.Register(mux)

	if hub != nil {
		handler := ws.NewHandler(hub, w, ws.HandlerConfig{Logger: logger, Now: now})
		mux.HandleFunc("/ws", handler.Handle)
	}

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func writeJSON(rw nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(rw, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	rw.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
