package ws

import (
	"silkweaver/internal/silk"
	"silkweaver/internal/sim"
)

// ProtocolVersion is stamped on every server message.
const ProtocolVersion = 1

type clientMessage struct {
	Ver        int          `json:"ver,omitempty"`
	Type       string       `json:"type"`
	DX         int          `json:"dx"`
	DY         int          `json:"dy"`
	Jump       bool         `json:"jump"`
	Silk       *silk.Intent `json:"silk,omitempty"`
	SentAt     int64        `json:"sentAt"`
	CommandSeq *uint64      `json:"seq,omitempty"`
}

type snapshotMessage struct {
	Ver        int          `json:"ver"`
	Type       string       `json:"type"`
	ServerTime int64        `json:"serverTime"`
	Snapshot   sim.Snapshot `json:"snapshot"`
}

type commandAckMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

type commandRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
}

type heartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}
