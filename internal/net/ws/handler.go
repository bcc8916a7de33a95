package ws

import (
	"encoding/json"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"silkweaver/internal/sim"
	"silkweaver/internal/telemetry"
	"silkweaver/internal/world"
	"silkweaver/logging"
)

const writeWait = 10 * time.Second

// CommandRejectSpectator marks a command sent on a session without an actor.
const CommandRejectSpectator = "spectator"

// SnapshotSource yields the per-region state streamed to clients.
type SnapshotSource interface {
	Snapshot(regionID string) (sim.Snapshot, bool)
}

// CommandQueue stages commands for the next tick.
type CommandQueue interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type HandlerConfig struct {
	Source        SnapshotSource
	Commands      CommandQueue
	Logger        telemetry.Logger
	Clock         logging.Clock
	DefaultRegion string
}

// Handler streams region snapshots to websocket clients. A session opened
// with ?actor=<id> may also drive that actor with input and silk commands.
type Handler struct {
	source        SnapshotSource
	commands      CommandQueue
	logger        telemetry.Logger
	clock         logging.Clock
	defaultRegion string
	upgrader      websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn    *websocket.Conn
	region  string
	actor   string
	lastSeq uint64
	mu      sync.Mutex
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(nil)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	return &Handler{
		source:        cfg.Source,
		commands:      cfg.Commands,
		logger:        logger,
		clock:         clock,
		defaultRegion: cfg.DefaultRegion,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Subscribers reports the number of open sessions.
func (h *Handler) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = h.defaultRegion
	}
	snap, ok := h.source.Snapshot(region)
	if !ok {
		nethttp.Error(w, "unknown region", nethttp.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed for region %s: %v", region, err)
		return
	}

	sub := &subscriber{conn: conn, region: region, actor: r.URL.Query().Get("actor")}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	defer h.disconnect(sub)

	data, err := h.marshalSnapshot(snap)
	if err != nil {
		h.logger.Printf("[ws] failed to marshal initial snapshot for %s: %v", region, err)
		return
	}
	if err := sub.write(data); err != nil {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("[ws] discarding malformed message from %s: %v", sub.name(), err)
			continue
		}
		if !h.handleMessage(sub, msg) {
			return
		}
	}
}

// handleMessage processes one client message. It returns false once the
// connection can no longer be written.
func (h *Handler) handleMessage(sub *subscriber, msg clientMessage) bool {
	seq := uint64(0)
	if msg.CommandSeq != nil {
		seq = *msg.CommandSeq
	}

	var cmd sim.Command
	switch msg.Type {
	case "heartbeat":
		return sub.writeJSON(heartbeatMessage{
			Ver:        ProtocolVersion,
			Type:       "heartbeat",
			ServerTime: h.clock.Now().UnixMilli(),
			ClientTime: msg.SentAt,
		}) == nil
	case "input":
		cmd = sim.Command{Type: sim.CommandInput, Input: &world.Input{X: msg.DX, Y: msg.DY, Jump: msg.Jump}}
	case "silk":
		if msg.Silk == nil {
			return true
		}
		cmd = sim.Command{Type: sim.CommandSilk, Silk: msg.Silk}
	default:
		h.logger.Printf("[ws] unknown message type %q from %s", msg.Type, sub.name())
		return true
	}

	if seq > 0 && seq <= sub.lastSeq {
		return sub.writeJSON(commandAckMessage{Ver: ProtocolVersion, Type: "commandAck", Seq: seq}) == nil
	}

	reason := ""
	switch {
	case sub.actor == "":
		reason = CommandRejectSpectator
	case h.commands == nil:
		reason = sim.CommandRejectQueueFull
	default:
		cmd.ActorID = sub.actor
		cmd.IssuedAt = h.clock.Now()
		if ok, why := h.commands.Enqueue(cmd); !ok {
			reason = why
		}
	}
	if seq == 0 {
		return true
	}
	if reason != "" {
		return sub.writeJSON(commandRejectMessage{
			Ver:    ProtocolVersion,
			Type:   "commandReject",
			Seq:    seq,
			Reason: reason,
			Retry:  reason == sim.CommandRejectQueueLimit,
		}) == nil
	}
	sub.lastSeq = seq
	return sub.writeJSON(commandAckMessage{Ver: ProtocolVersion, Type: "commandAck", Seq: seq}) == nil
}

// Broadcast sends the current snapshot of each subscribed region to its
// subscribers. Sessions whose write fails are closed.
func (h *Handler) Broadcast() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	encoded := make(map[string][]byte)
	for _, sub := range subs {
		data, ok := encoded[sub.region]
		if !ok {
			snap, found := h.source.Snapshot(sub.region)
			if !found {
				h.disconnect(sub)
				continue
			}
			var err error
			data, err = h.marshalSnapshot(snap)
			if err != nil {
				h.logger.Printf("[ws] failed to marshal snapshot for %s: %v", sub.region, err)
				continue
			}
			encoded[sub.region] = data
		}
		if err := sub.write(data); err != nil {
			h.logger.Printf("[ws] failed to send snapshot to %s: %v", sub.name(), err)
			h.disconnect(sub)
		}
	}
}

func (h *Handler) marshalSnapshot(snap sim.Snapshot) ([]byte, error) {
	return json.Marshal(snapshotMessage{
		Ver:        ProtocolVersion,
		Type:       "snapshot",
		ServerTime: h.clock.Now().UnixMilli(),
		Snapshot:   snap,
	})
}

func (h *Handler) disconnect(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	delete(h.subscribers, sub)
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

func (s *subscriber) name() string {
	if s.actor == "" {
		return "spectator@" + s.region
	}
	return s.actor + "@" + s.region
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *subscriber) writeJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.write(data)
}
