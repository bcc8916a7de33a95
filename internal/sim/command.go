package sim

import (
	"time"

	"silkweaver/internal/silk"
	"silkweaver/internal/world"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandInput CommandType = "Input"
	CommandSilk  CommandType = "Silk"
)

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64       `json:"originTick"`
	ActorID    string       `json:"actorId"`
	Type       CommandType  `json:"type"`
	IssuedAt   time.Time    `json:"issuedAt"`
	Input      *world.Input `json:"input,omitempty"`
	Silk       *silk.Intent `json:"silk,omitempty"`
}
