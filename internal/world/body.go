package world

import (
	"math"

	"silkweaver/internal/geom"
)

// HealthEpsilon defines the tolerance used when comparing health values.
const HealthEpsilon = 1e-6

// BodyKind tells the silk core how a body interacts with bridges.
type BodyKind string

const (
	KindActor    BodyKind = "actor"
	KindCreature BodyKind = "creature"
	KindItem     BodyKind = "item"
	KindWeapon   BodyKind = "weapon"
)

// BodyMode is the host locomotion mode.
type BodyMode uint8

const (
	ModeDefault BodyMode = iota
	ModeClimbing
)

// Animation is the locomotion animation the host should play.
type Animation uint8

const (
	AnimationNone Animation = iota
	AnimationVerticalClimb
	AnimationHorizontalClimb
	AnimationHanging
)

// BodyPart is one simulated circle of a body.
type BodyPart struct {
	Pos     geom.Vec2
	LastPos geom.Vec2
	Vel     geom.Vec2
	Mass    float64
	Radius  float64
}

// Input is the directional and jump input for one tick.
type Input struct {
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Jump bool `json:"jump"`
}

// Body is the host-side object the silk core reads and writes.
type Body struct {
	ID       string
	Kind     BodyKind
	Parts    []BodyPart
	Region   *Region
	Removed  bool
	Dead     bool
	Health   float64
	Pullable bool
	// Thrown marks a weapon in flight.
	Thrown bool

	Input     Input
	PrevInput Input

	ClimbSpeed   float64
	BodyDistance float64
	Mode         BodyMode
	Animation    Animation
	// Grounded is set by Step when the body rests on solid ground.
	Grounded bool
}

// NewBody creates a body with a single part at pos.
func NewBody(id string, kind BodyKind, pos geom.Vec2, mass, radius float64) *Body {
	return &Body{
		ID:         id,
		Kind:       kind,
		Parts:      []BodyPart{{Pos: pos, LastPos: pos, Mass: mass, Radius: radius}},
		Health:     1,
		ClimbSpeed: 1,
	}
}

// NewActorBody creates a two-part actor: head first, lower body below it.
func NewActorBody(id string, pos geom.Vec2) *Body {
	const distance = 17
	lower := pos.Add(geom.Vec2{0, -distance})
	return &Body{
		ID:   id,
		Kind: KindActor,
		Parts: []BodyPart{
			{Pos: pos, LastPos: pos, Mass: 0.35, Radius: 9},
			{Pos: lower, LastPos: lower, Mass: 0.35, Radius: 8},
		},
		Health:       1,
		ClimbSpeed:   1,
		BodyDistance: distance,
	}
}

// Part returns the indexed part or nil when out of range.
func (b *Body) Part(i int) *BodyPart {
	if b == nil || i < 0 || i >= len(b.Parts) {
		return nil
	}
	return &b.Parts[i]
}

// Pos returns the position of the main part.
func (b *Body) Pos() geom.Vec2 {
	if len(b.Parts) == 0 {
		return geom.Zero
	}
	return b.Parts[0].Pos
}

// TotalMass sums the mass of every part.
func (b *Body) TotalMass() float64 {
	total := 0.0
	for _, part := range b.Parts {
		total += part.Mass
	}
	return total
}

// Valid reports whether the body can still be referenced.
func (b *Body) Valid() bool {
	return b != nil && !b.Removed && b.Region.Loaded()
}

// JumpPressed reports the rising edge of the jump input.
func (b *Body) JumpPressed() bool {
	return b.Input.Jump && !b.PrevInput.Jump
}

// SetInput rolls the current input into PrevInput and stores the new one.
func (b *Body) SetInput(in Input) {
	b.PrevInput = b.Input
	b.Input = in
}

// TakeDamage reduces health, killing the body once it reaches zero.
func (b *Body) TakeDamage(amount float64) {
	if b == nil || b.Dead || math.IsNaN(amount) || amount <= 0 {
		return
	}
	b.Health -= amount
	if b.Health <= HealthEpsilon {
		b.Health = 0
		b.Dead = true
	}
}
