package app

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"silkweaver/internal/net/ws"
	"silkweaver/internal/sim"
	"silkweaver/logging"
)

type httpHandlerConfig struct {
	Engine   *sim.Engine
	Stream   *ws.Handler
	Router   *logging.Router
	TickRate int
}

func newHTTPHandler(cfg httpHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status      string              `json:"status"`
			ServerTime  int64               `json:"serverTime"`
			Tick        uint64              `json:"tick"`
			TickRate    int                 `json:"tickRate"`
			Regions     []string            `json:"regions"`
			Bridges     int                 `json:"bridges"`
			Impacts     uint64              `json:"impacts"`
			Subscribers int                 `json:"subscribers"`
			Logging     logging.RouterStats `json:"logging"`
			Metrics     map[string]uint64   `json:"metrics,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Tick:       cfg.Engine.Tick(),
			TickRate:   cfg.TickRate,
			Regions:    cfg.Engine.RegionIDs(),
			Bridges:    cfg.Engine.BridgeCount(),
			Impacts:    cfg.Engine.Impacts(),
		}
		if cfg.Stream != nil {
			payload.Subscribers = cfg.Stream.Subscribers()
		}
		if cfg.Router != nil {
			payload.Logging = cfg.Router.Stats()
			payload.Metrics = cfg.Router.Metrics().Snapshot()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.Stream != nil {
		mux.HandleFunc("/ws", cfg.Stream.Handle)
	}

	return mux
}
