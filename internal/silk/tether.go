package silk

import (
	"context"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
	silklog "silkweaver/logging/silk"
)

// TetherMode is the tether state machine position.
type TetherMode uint8

const (
	TetherRetracted TetherMode = iota
	TetherShootingOut
	TetherAttachedToTerrain
	TetherAttachedToObject
	// TetherRetracting lasts one tick after an anchor was lost.
	TetherRetracting
)

func (m TetherMode) String() string {
	switch m {
	case TetherRetracted:
		return "retracted"
	case TetherShootingOut:
		return "shooting_out"
	case TetherAttachedToTerrain:
		return "attached_terrain"
	case TetherAttachedToObject:
		return "attached_object"
	case TetherRetracting:
		return "retracting"
	default:
		return "unknown"
	}
}

// viaPoint is an intermediate rope vertex. A via point with a bridge rides
// that bridge and is never removed by line-of-sight pruning.
type viaPoint struct {
	pos      geom.Vec2
	born     uint64
	bridge   *Bridge
	segment  int
	fraction float64
}

// Tether is one actor's silk rope.
type Tether struct {
	cfg     TetherConfig
	body    *world.Body
	collide CollisionProvider
	emit    *emitter

	Mode    TetherMode
	Tip     geom.Vec2
	LastTip geom.Vec2
	Vel     geom.Vec2

	// IdealLength is the length the rope relaxes toward; RequestedLength is
	// the current target used by the elastic pull.
	IdealLength     float64
	RequestedLength float64
	Elastic         float64
	Pulling         bool

	stuck      geom.Vec2
	object     *world.Body
	bridge     *Bridge
	bridgeSeg  int
	bridgeFrac float64

	returning bool
	flight    int
	frame     uint64
	via       []viaPoint
}

// NewTether creates a retracted tether for body.
func NewTether(body *world.Body, collide CollisionProvider, cfg TetherConfig) *Tether {
	t := &Tether{
		cfg:     cfg,
		body:    body,
		collide: collide,
		emit:    newEmitter(nil, body),
	}
	t.resetState()
	t.Tip = t.base()
	t.LastTip = t.Tip
	return t
}

func (t *Tether) base() geom.Vec2 {
	return t.body.Pos()
}

// Attached reports whether the tip is fixed to terrain, a bridge or an object.
func (t *Tether) Attached() bool {
	return t.Mode == TetherAttachedToTerrain || t.Mode == TetherAttachedToObject
}

// AttachedBridge returns the bridge the tip rides, if any.
func (t *Tether) AttachedBridge() (*Bridge, int, float64) {
	if t.Mode != TetherAttachedToTerrain || t.bridge == nil {
		return nil, 0, 0
	}
	return t.bridge, t.bridgeSeg, t.bridgeFrac
}

// AttachedObject returns the object the tip holds, if any.
func (t *Tether) AttachedObject() *world.Body {
	if t.Mode != TetherAttachedToObject {
		return nil
	}
	return t.object
}

// ViaPointCount returns the number of intermediate rope vertices.
func (t *Tether) ViaPointCount() int {
	return len(t.via)
}

// RopePath returns base, via points and tip. It always has at least two points.
func (t *Tether) RopePath() []geom.Vec2 {
	path := make([]geom.Vec2, 0, len(t.via)+2)
	path = append(path, t.base())
	for _, v := range t.via {
		path = append(path, v.pos)
	}
	return append(path, t.Tip)
}

// TotalLength sums the rope path.
func (t *Tether) TotalLength() float64 {
	total := 0.0
	prev := t.base()
	for _, v := range t.via {
		total += geom.Dist(prev, v.pos)
		prev = v.pos
	}
	return total + geom.Dist(prev, t.Tip)
}

func (t *Tether) resetState() {
	t.Mode = TetherRetracted
	t.Vel = geom.Zero
	t.IdealLength = t.cfg.MaxLength
	t.RequestedLength = t.cfg.MaxLength
	t.Elastic = 0
	t.Pulling = false
	t.object = nil
	t.bridge = nil
	t.bridgeSeg, t.bridgeFrac = 0, 0
	t.returning = false
	t.flight = 0
	t.via = t.via[:0]
}

// Shoot launches the tip from the actor along dir. It is ignored unless the
// tether is retracted.
func (t *Tether) Shoot(dir geom.Vec2) {
	if t.Mode != TetherRetracted || !t.body.Valid() {
		return
	}
	dir = geom.Normalize(dir)
	if dir == geom.Zero {
		dir = geom.Right
	}
	t.resetState()
	t.Tip = t.base()
	t.LastTip = t.Tip
	t.Vel = dir.Mul(t.cfg.ShootSpeed)
	t.Mode = TetherShootingOut
}

// Release drops the rope and returns to Retracted. instant marks releases the
// host should not animate.
func (t *Tether) Release(instant bool) {
	t.release(instant, "released")
}

func (t *Tether) release(instant bool, reason string) {
	wasActive := t.Mode != TetherRetracted
	t.resetState()
	t.Tip = t.base()
	t.LastTip = t.Tip
	if !wasActive {
		return
	}
	silklog.TetherReleased(context.Background(), t.emit.pub, t.emit.tick, t.emit.actor, silklog.TetherReleasedPayload{
		Reason:  reason,
		Instant: instant,
	})
}

// DetachPhysicsOnly drops the attachment without touching rope lengths.
func (t *Tether) DetachPhysicsOnly() {
	if !t.Attached() {
		return
	}
	t.Mode = TetherRetracted
	t.object = nil
	t.bridge = nil
	t.bridgeSeg, t.bridgeFrac = 0, 0
	t.Pulling = false
	t.Vel = geom.Zero
	t.Elastic = 0
	t.via = t.via[:0]
	t.Tip = t.base()
}

// Reel shortens (dir > 0) or lengthens (dir < 0) the rope. Reeling in while
// the tip holds an object or rides a bridge pulls the target instead.
func (t *Tether) Reel(dir int) {
	if !t.Attached() {
		return
	}
	t.Pulling = dir > 0 && (t.Mode == TetherAttachedToObject || t.bridge != nil)
	if t.Mode != TetherAttachedToTerrain || dir == 0 {
		return
	}
	toAnchor := t.anchorDir()
	if dir > 0 {
		t.nudge(toAnchor.Mul(t.cfg.ReelForce))
		current := geom.Dist(t.base(), t.Tip)
		t.IdealLength = geom.Clamp(t.IdealLength-t.cfg.ReelStep, t.cfg.ReelMin, maxf(current, t.cfg.ReelMin))
	} else {
		t.nudge(toAnchor.Mul(-t.cfg.ReelForce))
		t.IdealLength = geom.Clamp(t.IdealLength+t.cfg.ReelStep, t.cfg.ReelMin, t.cfg.ReelOutMax)
	}
	t.RequestedLength = maxf(t.RequestedLength, t.cfg.ReelMin)
}

// Swing pushes the actor sideways around the anchor.
func (t *Tether) Swing(dirX int) {
	if t.Mode != TetherAttachedToTerrain || dirX == 0 {
		return
	}
	toAnchor := t.anchorDir()
	force := geom.Perpendicular(toAnchor).Mul(float64(dirX) * t.cfg.SwingForce)
	if toAnchor.X() > 0.3 || toAnchor.X() < -0.3 {
		force = force.Sub(geom.V(0, t.cfg.SwingDrop))
	}
	t.nudge(force)
}

// PinLength fixes the ideal length at the current requested length.
func (t *Tether) PinLength() {
	t.IdealLength = maxf(t.RequestedLength, t.cfg.ReelMin)
}

func (t *Tether) anchorDir() geom.Vec2 {
	target := t.Tip
	if len(t.via) > 0 {
		target = t.via[0].pos
	}
	return geom.DirVec(t.base(), target)
}

func (t *Tether) nudge(dv geom.Vec2) {
	for i := range t.body.Parts {
		t.body.Parts[i].Vel = t.body.Parts[i].Vel.Add(dv)
	}
}

// Update advances the tether one tick.
func (t *Tether) Update() {
	if !t.body.Valid() || t.body.Dead {
		if t.Mode != TetherRetracted {
			t.release(true, "actor_lost")
		}
		return
	}
	t.frame++
	t.LastTip = t.Tip

	switch t.Mode {
	case TetherRetracted:
		t.Tip = t.base()
		return
	case TetherRetracting:
		t.release(false, "anchor_lost")
		return
	case TetherShootingOut:
		t.updateFlight()
	case TetherAttachedToTerrain:
		t.updateTerrainAnchor()
	case TetherAttachedToObject:
		t.updateObjectAnchor()
	}
	if !t.Attached() {
		return
	}
	t.applyElasticity()
	t.updateRopeLength()
	t.maintainViaPoints()
}

func (t *Tether) updateFlight() {
	region := t.body.Region
	base := t.base()
	t.flight++
	if t.flight > t.cfg.MaxFlightTicks {
		t.release(false, "timeout")
		return
	}

	t.Vel = t.Vel.Sub(geom.V(0, t.cfg.Gravity*geom.InverseLerp(0.8, 0, t.Elastic)))
	next := t.Tip.Add(t.Vel)
	if !geom.DistLess(base, next, t.cfg.MaxLength) {
		t.release(false, "out_of_range")
		return
	}

	if hit, ok := t.collide.RayBridgeHit(region, t.Tip, next, nil); ok {
		t.attachBridge(hit.Bridge, hit.Point)
		return
	}
	if point, normal, ok := TerrainHit(t.collide, region, t.Tip, next); ok {
		safe := point.Add(normal.Mul(t.cfg.WallClearance))
		if _, blocked := t.collide.RayTerrainHit(region, base, safe); blocked {
			t.Tip = safe
			t.release(false, "blocked")
			return
		}
		t.attachTerrain(safe)
		return
	}
	if obj := t.objectAt(next); obj != nil && !geom.DistLess(base, next, t.cfg.ObjectMinDistance) {
		t.Tip = next
		t.attachObject(obj)
		return
	}

	t.Tip = next
	if t.returning || geom.DirVec(base, t.Tip).Dot(geom.Normalize(t.Vel)) < -0.1 {
		t.returning = true
		t.Tip = t.Tip.Add(geom.DirVec(t.Tip, base).Mul(t.cfg.ReturnSpeed))
		if geom.DistLess(base, t.Tip, t.cfg.ReturnResetDistance) {
			t.release(true, "returned")
		}
	}
}

// objectAt returns a pullable body with a part overlapping p.
func (t *Tether) objectAt(p geom.Vec2) *world.Body {
	for _, b := range t.body.Region.Bodies() {
		if b == t.body || !b.Pullable || b.Removed {
			continue
		}
		for _, part := range b.Parts {
			if geom.DistLess(part.Pos, p, part.Radius+t.cfg.ObjectAttachPadding) {
				return b
			}
		}
	}
	return nil
}

func (t *Tether) attachTerrain(p geom.Vec2) {
	t.Tip = p
	t.stuck = p
	t.Mode = TetherAttachedToTerrain
	t.setupRope()
	t.publishAttached("terrain", "")
}

func (t *Tether) attachBridge(b *Bridge, p geom.Vec2) {
	point, seg, frac := b.ClosestPoint(p)
	t.Tip = point
	t.stuck = point
	t.bridge, t.bridgeSeg, t.bridgeFrac = b, seg, frac
	t.Mode = TetherAttachedToTerrain
	t.setupRope()
	t.publishAttached("bridge", b.ID)
}

func (t *Tether) attachObject(obj *world.Body) {
	t.object = obj
	t.Tip = obj.Parts[0].Pos
	t.Mode = TetherAttachedToObject
	t.setupRope()
	t.publishAttached("object", "")
}

func (t *Tether) setupRope() {
	length := geom.Clamp(geom.Dist(t.base(), t.Tip), 0, t.cfg.MaxLength)
	t.IdealLength = length
	t.RequestedLength = length
	t.Vel = geom.Zero
	t.flight = 0
	t.returning = false
	t.via = t.via[:0]
}

func (t *Tether) publishAttached(target, bridgeID string) {
	silklog.TetherAttached(context.Background(), t.emit.pub, t.emit.tick, t.emit.actor, silklog.TetherAttachedPayload{
		Target:   target,
		Tip:      toPoint(t.Tip),
		BridgeID: bridgeID,
		Length:   t.RequestedLength,
	})
}

func (t *Tether) updateTerrainAnchor() {
	if t.bridge == nil {
		t.Tip = t.stuck
		return
	}
	if !t.bridge.Active() || t.bridge.Region != t.body.Region {
		t.Mode = TetherRetracting
		return
	}
	t.Tip = t.bridge.PointOnSegment(t.bridgeSeg, t.bridgeFrac)
	if t.Pulling {
		t.bridge.ApplyForceAt(t.Tip, geom.DirVec(t.Tip, t.base()).Mul(t.cfg.BridgePullForce), t.cfg.BridgePullRadius)
	}
}

func (t *Tether) updateObjectAnchor() {
	obj := t.object
	if !obj.Valid() || obj.Region != t.body.Region || len(obj.Parts) == 0 {
		t.Mode = TetherRetracting
		return
	}
	t.Tip = obj.Parts[0].Pos
	if !t.Pulling {
		return
	}
	base := t.base()
	if geom.DistLess(base, t.Tip, t.cfg.ObjectStopDistance) {
		t.Pulling = false
		return
	}
	dir := geom.DirVec(t.Tip, base)
	for i := range obj.Parts {
		part := &obj.Parts[i]
		part.Vel = part.Vel.Add(dir.Mul(t.cfg.ObjectPullForce / maxf(part.Mass, 0.5)))
		part.Vel = geom.ClampLength(part.Vel, t.cfg.ObjectMaxSpeed)
	}
}

// applyElasticity pulls the actor toward the first rope vertex while the
// rope is longer than requested.
func (t *Tether) applyElasticity() {
	total := t.TotalLength()
	if total <= t.RequestedLength {
		return
	}
	base := &t.body.Parts[0]
	dir := t.anchorDir()
	pull := minf((total-t.RequestedLength)*t.cfg.ElasticPull, t.cfg.ElasticMaxPull)
	base.Pos = base.Pos.Add(dir.Mul(pull))
	base.Vel = base.Vel.Sub(dir.Mul(base.Vel.Dot(dir) * t.cfg.ElasticVelDamping))
	t.Elastic = minf(t.Elastic+t.cfg.ElasticGain, t.cfg.ElasticMax)
}

func (t *Tether) updateRopeLength() {
	if t.Pulling {
		return
	}
	t.Elastic = maxf(0, t.Elastic-t.cfg.ElasticDecay)
	t.RequestedLength = geom.MoveTowards(t.RequestedLength, t.IdealLength, (1-t.Elastic)*t.cfg.LengthRate)
	t.RequestedLength = geom.Clamp(t.RequestedLength, 0, t.cfg.MaxLength)
}

// maintainViaPoints runs the two-phase rope wrap: scan for changes against
// the current list, then apply them.
func (t *Tether) maintainViaPoints() {
	t.refreshBridgeViaPoints()
	t.removeViaPoints()
	t.insertViaPoints()
	t.slideViaPoints()
}

func (t *Tether) refreshBridgeViaPoints() {
	for i := range t.via {
		v := &t.via[i]
		if v.bridge == nil {
			continue
		}
		if v.bridge.Active() && v.bridge.Region == t.body.Region {
			v.pos = v.bridge.PointOnSegment(v.segment, v.fraction)
			continue
		}
		v.bridge = nil
		v.born = t.frame
	}
}

// point returns rope vertex i where 0 is the base and len(via)+1 the tip.
func (t *Tether) point(i int) geom.Vec2 {
	switch {
	case i == 0:
		return t.base()
	case i > len(t.via):
		return t.Tip
	default:
		return t.via[i-1].pos
	}
}

func (t *Tether) removeViaPoints() {
	if len(t.via) == 0 {
		return
	}
	var pending []int
	lastMarked := -2
	for i, v := range t.via {
		if v.bridge != nil || t.frame-v.born < uint64(t.cfg.ViaPointCooldown) || lastMarked == i-1 {
			continue
		}
		if _, _, _, blocked := t.obstruction(t.point(i), t.point(i+2)); blocked {
			continue
		}
		pending = append(pending, i)
		lastMarked = i
	}
	for k := len(pending) - 1; k >= 0; k-- {
		i := pending[k]
		t.via = append(t.via[:i], t.via[i+1:]...)
	}
}

type viaInsert struct {
	index int
	point viaPoint
}

func (t *Tether) insertViaPoints() {
	if len(t.via) >= t.cfg.MaxViaPoints {
		return
	}
	var pending []viaInsert
	segments := len(t.via) + 1
	for i := 0; i < segments; i++ {
		start, end := t.point(i), t.point(i+1)
		if geom.DistLess(start, end, 1) {
			continue
		}
		point, normal, hit, blocked := t.obstruction(start, end)
		if !blocked {
			continue
		}
		if hit.Bridge != nil {
			closest, seg, frac := hit.Bridge.ClosestPoint(hit.Point)
			pending = append(pending, viaInsert{index: i, point: viaPoint{
				pos: closest, born: t.frame, bridge: hit.Bridge, segment: seg, fraction: frac,
			}})
			continue
		}
		offset := point.Add(normal.Mul(t.cfg.WallClearance))
		spacing := t.cfg.ViaPointMinSpacing
		if geom.DistLess(offset, start, spacing) || geom.DistLess(offset, end, spacing) {
			continue
		}
		pending = append(pending, viaInsert{index: i, point: viaPoint{pos: offset, born: t.frame}})
	}
	for k := len(pending) - 1; k >= 0; k-- {
		if len(t.via) >= t.cfg.MaxViaPoints {
			break
		}
		ins := pending[k]
		t.via = append(t.via, viaPoint{})
		copy(t.via[ins.index+1:], t.via[ins.index:])
		t.via[ins.index] = ins.point
	}
}

// obstruction reports the first bridge or terrain crossing between two rope
// vertices, ignoring anything within the minimum spacing of either end.
func (t *Tether) obstruction(from, to geom.Vec2) (geom.Vec2, geom.Vec2, BridgeHit, bool) {
	spacing := t.cfg.ViaPointMinSpacing
	if geom.DistLess(from, to, 2*spacing) {
		return geom.Zero, geom.Zero, BridgeHit{}, false
	}
	dir := geom.DirVec(from, to)
	a, b := from.Add(dir.Mul(spacing)), to.Sub(dir.Mul(spacing))
	region := t.body.Region
	if hit, ok := t.collide.RayBridgeHit(region, a, b, nil); ok {
		return hit.Point, geom.Zero, hit, true
	}
	if point, normal, ok := TerrainHit(t.collide, region, a, b); ok {
		return point, normal, BridgeHit{}, true
	}
	return geom.Zero, geom.Zero, BridgeHit{}, false
}

// slideViaPoints nudges static via points that ended up inside solid tiles
// out along the axis of least penetration.
func (t *Tether) slideViaPoints() {
	region := t.body.Region
	for i := range t.via {
		v := &t.via[i]
		if v.bridge != nil || t.frame-v.born < uint64(t.cfg.ViaPointCooldown) || !region.SolidAt(v.pos) {
			continue
		}
		center := region.TileRect(region.TileOf(v.pos)).Center()
		d := v.pos.Sub(center)
		if abs(d.X()) > abs(d.Y()) {
			v.pos = v.pos.Add(geom.V(signOrOne(d.X()), 0))
		} else {
			v.pos = v.pos.Add(geom.V(0, signOrOne(d.Y())))
		}
	}
}

func signOrOne(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
