package silk

import (
	"context"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
	silklog "silkweaver/logging/silk"
)

// BuilderPhase is the bridge builder state.
type BuilderPhase uint8

const (
	BuilderInactive BuilderPhase = iota
	// BuilderActive holds the D2 endpoint while the player aims.
	BuilderActive
	// BuilderAnimating flies the virtual projectile toward D1.
	BuilderAnimating
)

func (p BuilderPhase) String() string {
	switch p {
	case BuilderInactive:
		return "inactive"
	case BuilderActive:
		return "active"
	case BuilderAnimating:
		return "animating"
	default:
		return "unknown"
	}
}

// endpoint is a provisional bridge end, tracked until the bridge is created.
type endpoint struct {
	point  geom.Vec2
	kind   AnchorKind
	bridge *Bridge
	seg    int
	frac   float64
	body   *world.Body
}

func (e endpoint) anchor(region *world.Region) Anchor {
	switch e.kind {
	case AnchorBridge:
		if e.bridge != nil && e.bridge.Active() && e.bridge.Region == region {
			return BridgeAnchor(e.bridge, e.point)
		}
	case AnchorObject:
		if e.body.Valid() && e.body.Region == region {
			return ObjectAnchor(e.body, e.point)
		}
	}
	return TerrainAnchor(e.point)
}

// Builder turns a tether attachment (D2) and a thrown virtual projectile
// (D1) into a bridge.
type Builder struct {
	cfg      BuilderConfig
	body     *world.Body
	tether   *Tether
	registry *Registry
	collide  CollisionProvider
	emit     *emitter

	Phase BuilderPhase
	d2    endpoint
	d1    endpoint

	region    *world.Region
	pos       geom.Vec2
	vel       geom.Vec2
	aim       geom.Vec2
	hasAim    bool
	hasTarget bool
	flight    int
	tiles     []world.TileCoord

	// LastBridge is the most recent bridge this builder created.
	LastBridge *Bridge
}

// NewBuilder creates an inactive builder bound to an actor's tether.
func NewBuilder(body *world.Body, tether *Tether, registry *Registry) *Builder {
	return &Builder{
		cfg:      registry.Config().Builder,
		body:     body,
		tether:   tether,
		registry: registry,
		collide:  registry,
		emit:     newEmitter(registry.Publisher(), body),
	}
}

// Active reports whether build mode is on, including while animating.
func (b *Builder) Active() bool {
	return b.Phase != BuilderInactive
}

// Animating reports whether the virtual projectile is in flight or resolving.
func (b *Builder) Animating() bool {
	return b.Phase == BuilderAnimating
}

// D2 returns the current second endpoint.
func (b *Builder) D2() geom.Vec2 {
	return b.d2.point
}

// Projectile returns the virtual projectile position while animating.
func (b *Builder) Projectile() (geom.Vec2, bool) {
	return b.pos, b.Phase == BuilderAnimating
}

// Activate enters build mode with D2 at point, copying the tether's
// attachment so D2 follows a held object or bridge.
func (b *Builder) Activate(point geom.Vec2) {
	b.Phase = BuilderActive
	b.d2 = endpoint{point: point, kind: AnchorTerrain}
	if bridge, seg, frac := b.tether.AttachedBridge(); bridge != nil {
		b.AttachD2ToBridge(bridge, seg, frac)
	} else if obj := b.tether.AttachedObject(); obj != nil {
		b.AttachD2ToObject(obj)
	}
}

// AttachD2ToBridge makes D2 ride a bridge.
func (b *Builder) AttachD2ToBridge(bridge *Bridge, seg int, frac float64) {
	b.d2.kind = AnchorBridge
	b.d2.bridge, b.d2.seg, b.d2.frac = bridge, seg, frac
	b.d2.body = nil
	b.d2.point = bridge.PointOnSegment(seg, frac)
}

// AttachD2ToObject makes D2 follow an object.
func (b *Builder) AttachD2ToObject(obj *world.Body) {
	b.d2.kind = AnchorObject
	b.d2.body = obj
	b.d2.bridge = nil
	if len(obj.Parts) > 0 {
		b.d2.point = obj.Parts[0].Pos
	}
}

// RefreshD2 moves D2 with its bridge or object, falling back to a terrain
// point when the target is gone.
func (b *Builder) RefreshD2() {
	switch b.d2.kind {
	case AnchorBridge:
		if b.d2.bridge != nil && b.d2.bridge.Active() {
			b.d2.point = b.d2.bridge.PointOnSegment(b.d2.seg, b.d2.frac)
			return
		}
	case AnchorObject:
		if b.d2.body.Valid() && len(b.d2.body.Parts) > 0 {
			b.d2.point = b.d2.body.Parts[0].Pos
			return
		}
	default:
		return
	}
	b.d2.kind = AnchorTerrain
	b.d2.bridge = nil
	b.d2.body = nil
}

// Deactivate leaves build mode without events.
func (b *Builder) Deactivate() {
	b.Phase = BuilderInactive
	b.d1 = endpoint{}
	b.d2 = endpoint{}
	b.region = nil
	b.hasTarget = false
	b.hasAim = false
	b.flight = 0
	b.vel = geom.Zero
}

// Cancel drops the tether attachment and leaves build mode.
func (b *Builder) Cancel(reason string) {
	b.cancel(reason, 0)
}

func (b *Builder) cancel(reason string, distance float64) {
	if !b.Active() {
		return
	}
	b.tether.DetachPhysicsOnly()
	b.Deactivate()
	silklog.BuildCancelled(context.Background(), b.emit.pub, b.emit.tick, b.emit.actor, silklog.BuildCancelledPayload{
		Reason:   reason,
		Distance: distance,
	})
}

// ShootVirtualSilk launches the projectile from start. When aim is set the
// projectile heads for it instead of following dir.
func (b *Builder) ShootVirtualSilk(dir, start geom.Vec2, region *world.Region, aim *geom.Vec2) {
	if b.Phase != BuilderActive {
		return
	}
	heading := geom.Normalize(dir)
	b.hasAim = aim != nil
	if aim != nil {
		b.aim = *aim
		if d := geom.DirVec(start, *aim); d != geom.Zero {
			heading = d
		}
	}
	if heading == geom.Zero {
		heading = geom.Right
	}
	b.Phase = BuilderAnimating
	b.region = region
	b.pos = start
	b.vel = heading.Mul(b.cfg.ShootSpeed)
	b.hasTarget = false
	b.flight = 0
}

// Update advances the projectile, or creates the bridge one tick after a
// target was found.
func (b *Builder) Update() {
	if b.Phase != BuilderAnimating {
		return
	}
	if !b.region.Loaded() {
		b.Cancel("region_lost")
		return
	}
	if b.hasTarget {
		b.finish()
		return
	}

	b.flight++
	last := b.pos
	b.vel = b.vel.Sub(geom.V(0, b.cfg.Gravity))
	b.pos = b.pos.Add(b.vel)

	var found bool
	if b.prioritizeTerrain() {
		found = b.hitTerrain(last) || b.hitBridge(last) || b.hitObject() || b.hitBeam(last)
	} else {
		found = b.hitBridge(last) || b.hitTerrain(last) || b.hitObject() || b.hitBeam(last)
	}
	if found {
		b.hasTarget = true
		b.pos = b.d1.point
		return
	}

	switch {
	case geom.DirVec(b.d2.point, b.pos).Dot(geom.Normalize(b.vel)) < b.cfg.CancelDot:
		b.Cancel("reversed")
	case !geom.DistLess(b.d2.point, b.pos, b.cfg.MaxDistance):
		b.cancel("out_of_range", geom.Dist(b.d2.point, b.pos))
	case b.flight >= b.cfg.MaxFlightTicks:
		b.Cancel("timeout")
	}
}

func (b *Builder) prioritizeTerrain() bool {
	if !b.hasAim || !geom.DistLess(b.pos, b.aim, b.cfg.PriorityDistance) {
		return false
	}
	return geom.Normalize(b.vel).Dot(geom.DirVec(b.pos, b.aim)) > b.cfg.PriorityDot
}

func (b *Builder) hitTerrain(last geom.Vec2) bool {
	tile, ok := b.collide.RayTerrainHit(b.region, last, b.pos)
	if !ok {
		return false
	}
	rect := b.region.TileRect(tile)
	point, _, _, hit := rect.Grow(b.cfg.TileGrow).RayHit(last, b.pos)
	if !hit {
		point = b.pos
	}
	b.d1 = endpoint{point: rect.ClampPoint(point), kind: AnchorTerrain}
	return true
}

func (b *Builder) hitBridge(last geom.Vec2) bool {
	hit, ok := b.collide.RayBridgeHit(b.region, last, b.pos, b.d2.bridge)
	if !ok {
		return false
	}
	b.d1 = endpoint{
		point:  hit.Point,
		kind:   AnchorBridge,
		bridge: hit.Bridge,
		seg:    hit.Segment,
		frac:   hit.Fraction,
	}
	return true
}

func (b *Builder) hitObject() bool {
	for _, body := range b.region.Bodies() {
		if body == b.body || !body.Pullable || body.Removed || body == b.d2.body {
			continue
		}
		for _, part := range body.Parts {
			if geom.DistLess(part.Pos, b.pos, part.Radius+b.cfg.ObjectPadding) {
				b.d1 = endpoint{point: part.Pos, kind: AnchorObject, body: body}
				return true
			}
		}
	}
	return false
}

// hitBeam snaps to the middle line of any beam tile the step crossed.
func (b *Builder) hitBeam(last geom.Vec2) bool {
	b.tiles = b.collide.RayTiles(b.region, last, b.pos, b.tiles[:0])
	tol := b.cfg.BeamTolerance
	for _, tile := range b.tiles {
		center := b.region.TileCenter(tile)
		switch b.region.Tile(tile) {
		case world.TileHorizontalBeam:
			cross := geom.HorizontalCrossPoint(last, b.pos, center.Y())
			x := geom.Clamp(cross.X(), center.X()-tol, center.X()+tol)
			b.d1 = endpoint{point: geom.V(x, center.Y()), kind: AnchorTerrain}
			return true
		case world.TileVerticalBeam:
			cross := geom.VerticalCrossPoint(last, b.pos, center.X())
			y := geom.Clamp(cross.Y(), center.Y()-tol, center.Y()+tol)
			b.d1 = endpoint{point: geom.V(center.X(), y), kind: AnchorTerrain}
			return true
		}
	}
	return false
}

// finish creates the bridge between D1 and D2, or cancels when they are too
// far apart.
func (b *Builder) finish() {
	b.RefreshD2()
	distance := geom.Dist(b.d1.point, b.d2.point)
	if distance > b.cfg.MaxDistance {
		b.cancel("out_of_range", distance)
		return
	}
	a1, a2 := b.d1.anchor(b.region), b.d2.anchor(b.region)
	bridge := b.registry.CreateBridge(b.region, a1, a2)
	if bridge == nil {
		b.cancel("rejected", distance)
		return
	}
	b.LastBridge = bridge
	silklog.BridgeCreated(context.Background(), b.emit.pub, b.emit.tick, b.emit.actor, silklog.BridgeCreatedPayload{
		BridgeID:  bridge.ID,
		Nodes:     bridge.NodeCount(),
		MaxLength: bridge.MaxLength,
		Start:     toPoint(a1.Position()),
		End:       toPoint(a2.Position()),
		StartKind: a1.Kind.String(),
		EndKind:   a2.Kind.String(),
	})
	b.tether.DetachPhysicsOnly()
	b.Deactivate()
}
