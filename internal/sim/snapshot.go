package sim

import (
	"silkweaver/internal/geom"
	"silkweaver/internal/silk"
	"silkweaver/internal/world"
	silklog "silkweaver/logging/silk"
)

// Point is a world position in snapshots.
type Point = silklog.Point

// BridgeState mirrors one bridge.
type BridgeState struct {
	ID        string  `json:"id"`
	Health    float64 `json:"health"`
	Path      []Point `json:"path"`
	StartKind string  `json:"startKind"`
	EndKind   string  `json:"endKind"`
}

// ActorState mirrors the silk state of one actor.
type ActorState struct {
	ID         string  `json:"id"`
	Pos        Point   `json:"pos"`
	Tether     string  `json:"tether"`
	Rope       []Point `json:"rope"`
	Builder    string  `json:"builder"`
	Projectile *Point  `json:"projectile,omitempty"`
	ClimbMode  string  `json:"climbMode"`
	Hanging    bool    `json:"hanging,omitempty"`
	Surface    string  `json:"surface,omitempty"`
}

// BodyState mirrors a non-actor body.
type BodyState struct {
	ID   string         `json:"id"`
	Kind world.BodyKind `json:"kind"`
	Pos  Point          `json:"pos"`
	Dead bool           `json:"dead,omitempty"`
}

// BreakState mirrors a bridge break recorded during the tick.
type BreakState struct {
	BridgeID  string  `json:"bridgeId"`
	Point     Point   `json:"point"`
	Fragment1 []Point `json:"fragment1"`
	Fragment2 []Point `json:"fragment2"`
}

// Snapshot captures one region after a tick.
type Snapshot struct {
	Tick    uint64        `json:"tick"`
	Region  string        `json:"region"`
	Bridges []BridgeState `json:"bridges"`
	Actors  []ActorState  `json:"actors"`
	Bodies  []BodyState   `json:"bodies,omitempty"`
	Breaks  []BreakState  `json:"breaks,omitempty"`
}

// Snapshot captures the given region. The second result is false when the
// region is not loaded.
func (e *Engine) Snapshot(regionID string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	region, ok := e.regions[regionID]
	if !ok {
		return Snapshot{}, false
	}
	snap := Snapshot{Tick: e.tick, Region: regionID}
	for _, b := range e.registry.Bridges(region) {
		snap.Bridges = append(snap.Bridges, BridgeState{
			ID:        b.ID,
			Health:    b.Health,
			Path:      points(b.Path()),
			StartKind: b.Anchor1.Kind.String(),
			EndKind:   b.Anchor2.Kind.String(),
		})
	}
	for _, id := range e.actorOrder {
		actor := e.actors[id]
		if actor.Body.Region != region {
			continue
		}
		snap.Actors = append(snap.Actors, actorState(actor))
	}
	for _, body := range region.Bodies() {
		if body.Kind == world.KindActor {
			continue
		}
		snap.Bodies = append(snap.Bodies, BodyState{ID: body.ID, Kind: body.Kind, Pos: point(body.Pos()), Dead: body.Dead})
	}
	for _, br := range e.breaks {
		if br.Region != region {
			continue
		}
		snap.Breaks = append(snap.Breaks, BreakState{
			BridgeID:  br.Bridge.ID,
			Point:     point(br.Point),
			Fragment1: points(br.Fragment1),
			Fragment2: points(br.Fragment2),
		})
	}
	return snap, true
}

func actorState(actor *silk.Actor) ActorState {
	state := ActorState{
		ID:        actor.ID(),
		Pos:       point(actor.Body.Pos()),
		Tether:    actor.Tether.Mode.String(),
		Rope:      points(actor.Tether.RopePath()),
		Builder:   actor.Builder.Phase.String(),
		ClimbMode: actor.Climber.Mode.String(),
		Hanging:   actor.Climber.Hanging,
	}
	if pos, ok := actor.Builder.Projectile(); ok {
		p := point(pos)
		state.Projectile = &p
	}
	if surface := actor.Climber.Surface(); surface != nil {
		state.Surface = surface.SurfaceID()
	}
	return state
}

func point(v geom.Vec2) Point {
	return Point{X: v.X(), Y: v.Y()}
}

func points(path []geom.Vec2) []Point {
	out := make([]Point, len(path))
	for i, p := range path {
		out[i] = point(p)
	}
	return out
}
