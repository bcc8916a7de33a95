package silk

import (
	"context"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
	"silkweaver/logging"
	silklog "silkweaver/logging/silk"
)

// ClimbMode is the traversal mode along a surface.
type ClimbMode uint8

const (
	ClimbNone ClimbMode = iota
	ClimbVertical
	ClimbHorizontal
)

func (m ClimbMode) String() string {
	switch m {
	case ClimbVertical:
		return "vertical"
	case ClimbHorizontal:
		return "horizontal"
	default:
		return "none"
	}
}

type surfaceSwitch struct {
	to      Surface
	seg     int
	frac    float64
	from    geom.Vec2
	counter int
}

// Climber moves an actor along a climbable surface.
type Climber struct {
	cfg      ClimbConfig
	body     *world.Body
	tether   *Tether
	registry *Registry
	emit     *emitter

	surface  Surface
	Segment  int
	Fraction float64
	Mode     ClimbMode
	Hanging  bool
	// Smoothed trails the climb point and is where the actor's weight lands.
	Smoothed geom.Vec2

	switching *surfaceSwitch
}

// NewClimber creates an idle climber. registry may be nil, which disables
// surface switching and grabbing.
func NewClimber(body *world.Body, tether *Tether, registry *Registry, cfg ClimbConfig) *Climber {
	pub := registryPublisher(registry)
	return &Climber{
		cfg:      cfg,
		body:     body,
		tether:   tether,
		registry: registry,
		emit:     newEmitter(pub, body),
	}
}

// Climbing reports whether the actor is on a surface or switching between two.
func (c *Climber) Climbing() bool {
	return c.surface != nil || c.switching != nil
}

// Switching reports whether a surface switch is in progress.
func (c *Climber) Switching() bool {
	return c.switching != nil
}

// Surface returns the current surface, or nil.
func (c *Climber) Surface() Surface {
	return c.surface
}

// Point returns the current climb point.
func (c *Climber) Point() geom.Vec2 {
	if c.surface == nil {
		return c.body.Pos()
	}
	return c.surface.PointOnSegment(c.Segment, c.Fraction)
}

// Grab attaches to the closest bridge within grab range of the actor.
func (c *Climber) Grab() bool {
	if c.Climbing() || c.registry == nil || !c.body.Valid() {
		return false
	}
	bridge, ok := c.registry.ClosestBridge(c.body.Region, c.body.Pos(), c.cfg.GrabRange, nil)
	if !ok {
		return false
	}
	_, seg, frac := bridge.ClosestPoint(c.body.Pos())
	return c.Attach(bridge, seg, frac)
}

// Attach starts climbing surface at the given segment and fraction. It is
// refused next to a vanilla climbing pole.
func (c *Climber) Attach(surface Surface, seg int, frac float64) bool {
	if surface == nil || !surface.Active() || c.nearPole() {
		return false
	}
	seg = clampInt(seg, 0, surface.SegmentCount()-1)
	frac = geom.Clamp01(frac)
	c.surface = surface
	c.Segment, c.Fraction = seg, frac
	c.switching = nil

	point := surface.PointOnSegment(seg, frac)
	c.Smoothed = point
	angle := geom.AngleBetween(c.tangent(), geom.Up)
	if angle < c.cfg.AttachAngle || angle > 180-c.cfg.AttachAngle {
		c.Mode = ClimbVertical
		c.Hanging = false
	} else {
		c.Mode = ClimbHorizontal
		c.Hanging = c.body.Pos().Y() < point.Y()
	}
	c.body.Mode = world.ModeClimbing
	c.setAnimation()
	c.align(point)
	if c.tether != nil && c.tether.Attached() {
		c.tether.Release(false)
	}
	silklog.ClimbAttached(context.Background(), c.emit.pub, c.emit.tick, c.emit.actor, silklog.ClimbAttachedPayload{
		SurfaceID: surface.SurfaceID(),
		Segment:   seg,
		Fraction:  frac,
		Mode:      c.Mode.String(),
		Hanging:   c.Hanging,
	})
	return true
}

// Detach stops climbing and restores default locomotion.
func (c *Climber) Detach(reason string) {
	if !c.Climbing() {
		return
	}
	id := ""
	if c.surface != nil {
		id = c.surface.SurfaceID()
	}
	c.surface = nil
	c.switching = nil
	c.Mode = ClimbNone
	c.Hanging = false
	if c.body.Mode == world.ModeClimbing {
		c.body.Mode = world.ModeDefault
		c.body.Animation = world.AnimationNone
	}
	silklog.ClimbDetached(context.Background(), c.emit.pub, c.emit.tick, c.emit.actor, silklog.ClimbDetachedPayload{
		SurfaceID: id,
		Reason:    reason,
	})
}

// Update runs one climbing tick.
func (c *Climber) Update() {
	if !c.Climbing() {
		return
	}
	if !c.body.Valid() || c.body.Dead {
		c.Detach("actor_lost")
		return
	}
	if c.switching != nil {
		c.updateSwitch()
		return
	}
	if !c.surface.Active() {
		c.Detach("surface_lost")
		return
	}

	tangent := c.tangent()
	angle := geom.AngleBetween(tangent, geom.Up)
	mode := ClimbHorizontal
	if angle < c.cfg.HysteresisAngle || angle > 180-c.cfg.HysteresisAngle {
		mode = ClimbVertical
	}
	if mode != c.Mode {
		c.Mode = mode
		c.Hanging = false
		c.setAnimation()
	}
	c.body.Mode = world.ModeClimbing

	if c.Mode == ClimbVertical {
		c.updateVertical(tangent)
	} else {
		c.updateHorizontal(tangent)
	}
	if c.surface == nil || c.switching != nil {
		return
	}

	c.constrainBody()
	target := c.Point()
	c.Smoothed = geom.LerpVec(c.Smoothed, target, c.cfg.Smoothing)
	if geom.LenSq(c.body.Pos().Sub(c.Smoothed)) > 1 {
		weight := geom.Down.Mul(c.gravity() * c.body.TotalMass() * c.cfg.WeightFactor)
		c.surface.ApplyForceAt(c.Smoothed, weight, c.forceRadius())
	}
}

func (c *Climber) updateVertical(tangent geom.Vec2) {
	in, prev := c.body.Input, c.body.PrevInput
	for i := range c.body.Parts {
		c.body.Parts[i].Vel = c.body.Parts[i].Vel.Mul(c.cfg.VerticalDamping)
	}
	if in.X != 0 && prev.X == 0 && c.TrySwitchSurface(in.X, 0) {
		return
	}
	if c.body.JumpPressed() {
		dir := geom.Normalize(tangent.Mul(float64(in.X) * 0.8).Add(geom.Up.Mul(0.6)))
		c.jump(dir)
		return
	}
	if in.Y != 0 {
		speed := c.body.ClimbSpeed * c.cfg.VerticalSpeed
		start := c.surface.PointOnSegment(c.Segment, 0)
		end := c.surface.PointOnSegment(c.Segment, 1)
		upSign := 1.0
		if end.Y() < start.Y() {
			upSign = -1
		}
		if length := geom.Dist(start, end); length > 0.1 {
			c.Fraction += speed * float64(in.Y) * upSign / length
			c.rollover()
		}
		move := geom.DirVec(start, end).Mul(speed * float64(in.Y) * upSign)
		for i := range c.body.Parts {
			c.body.Parts[i].Pos = c.body.Parts[i].Pos.Add(move)
		}
	}
	c.align(c.Smoothed)
}

func (c *Climber) updateHorizontal(tangent geom.Vec2) {
	in, prev := c.body.Input, c.body.PrevInput
	if in.Y != 0 && prev.Y == 0 {
		if c.Hanging && in.Y < 0 {
			c.Detach("drop")
			return
		}
		if c.TrySwitchSurface(0, in.Y) {
			return
		}
		c.Hanging = in.Y < 0
		c.setAnimation()
	}
	if c.body.JumpPressed() {
		up := 1.0
		if c.Hanging {
			up = -0.8
		}
		dir := geom.Normalize(geom.Up.Mul(up).Add(tangent.Mul(float64(in.X))))
		c.jump(dir)
		return
	}
	if in.X != 0 {
		dx := float64(in.X)
		if tangent.Dot(geom.Right) < 0 {
			dx = -dx
		}
		start := c.surface.PointOnSegment(c.Segment, 0)
		end := c.surface.PointOnSegment(c.Segment, 1)
		if length := geom.Dist(start, end); length > 0.1 {
			c.Fraction += c.body.ClimbSpeed * c.cfg.HorizontalSpeed * dx / length
			c.rollover()
		}
	}
	g := c.gravity()
	for i := range c.body.Parts {
		part := &c.body.Parts[i]
		part.Vel = geom.V(part.Vel.X()*0.9, part.Vel.Y()-g)
	}
	c.align(c.Smoothed)
}

func (c *Climber) jump(dir geom.Vec2) {
	if head := c.body.Part(0); head != nil {
		head.Vel = dir.Mul(c.cfg.JumpSpeedHead)
	}
	if lower := c.body.Part(1); lower != nil {
		lower.Vel = dir.Mul(c.cfg.JumpSpeedBody)
	}
	c.Detach("jump")
}

// rollover carries the fraction across segment boundaries, clamping at the
// ends of the surface.
func (c *Climber) rollover() {
	last := c.surface.SegmentCount() - 1
	for c.Fraction < 0 && c.Segment > 0 {
		c.Segment--
		c.Fraction++
	}
	for c.Fraction > 1 && c.Segment < last {
		c.Segment++
		c.Fraction--
	}
	c.Fraction = geom.Clamp01(c.Fraction)
}

// align pulls the body onto point for the current mode.
func (c *Climber) align(point geom.Vec2) {
	head := c.body.Part(0)
	if head == nil {
		return
	}
	lower := c.body.Part(1)
	dist := c.body.BodyDistance
	switch c.Mode {
	case ClimbVertical:
		head.Pos = geom.V(point.X(), geom.Lerp(head.Pos.Y(), point.Y(), 0.9))
		if lower != nil {
			lower.Pos = geom.V(point.X(), geom.Lerp(lower.Pos.Y(), point.Y()-dist, 0.9))
		}
	case ClimbHorizontal:
		if c.Hanging {
			head.Pos = geom.LerpVec(head.Pos, point, 0.4)
			if lower != nil {
				lower.Pos = geom.LerpVec(lower.Pos, point.Sub(geom.V(0, dist)), 0.4)
			}
			return
		}
		if lower != nil {
			lower.Pos = geom.LerpVec(lower.Pos, point, 0.8)
		}
		head.Vel = head.Vel.Add(geom.V(0, c.gravity()))
	}
}

// constrainBody keeps the two parts at body distance, moving the head most.
func (c *Climber) constrainBody() {
	head, lower := c.body.Part(0), c.body.Part(1)
	if head == nil || lower == nil {
		return
	}
	delta := head.Pos.Sub(lower.Pos)
	d := delta.Len()
	if d < geom.Epsilon {
		return
	}
	fix := delta.Mul((c.body.BodyDistance - d) / d)
	head.Pos = head.Pos.Add(fix.Mul(0.9))
	head.Vel = head.Vel.Add(fix.Mul(0.9))
	lower.Pos = lower.Pos.Sub(fix.Mul(0.1))
	lower.Vel = lower.Vel.Sub(fix.Mul(0.1))
}

// TrySwitchSurface probes in the input direction for another surface whose
// orientation matches the requested move and starts a switch to it.
func (c *Climber) TrySwitchSurface(inputX, inputY int) bool {
	if c.registry == nil || c.surface == nil || c.nearPole() {
		return false
	}
	probe := c.body.Pos().Add(geom.V(float64(inputX), float64(inputY)).Mul(c.cfg.SwitchProbe))
	current := c.surface
	target, ok := c.registry.ClosestBridge(c.body.Region, probe, c.cfg.GrabRange, func(b *Bridge) bool {
		return Surface(b) == current
	})
	if !ok {
		return false
	}
	_, seg, frac := target.ClosestPoint(probe)
	angle := geom.AngleBetween(Tangent(target, seg, frac, c.cfg.TangentStep), geom.Up)
	horizontal := angle >= c.cfg.HysteresisAngle && angle <= 180-c.cfg.HysteresisAngle
	wanted := (c.Mode == ClimbVertical && horizontal && inputX != 0) ||
		(c.Mode == ClimbHorizontal && !horizontal && inputY != 0)
	if !wanted {
		return false
	}
	c.switching = &surfaceSwitch{to: target, seg: seg, frac: frac, from: c.body.Pos()}
	return true
}

func (c *Climber) updateSwitch() {
	s := c.switching
	if !s.to.Active() {
		c.Detach("surface_lost")
		return
	}
	s.counter++
	target := s.to.PointOnSegment(s.seg, s.frac)
	c.align(geom.LerpVec(s.from, target, float64(s.counter)/float64(c.cfg.SwitchDuration)))
	if s.counter < c.cfg.SwitchDuration {
		return
	}
	c.switching = nil
	c.surface = nil
	if !c.Attach(s.to, s.seg, s.frac) {
		c.surface = s.to
		c.Detach("switch_failed")
	}
}

// nearPole reports whether a beam tile centre lies within pole range of the
// actor in the surrounding 3x3 tiles.
func (c *Climber) nearPole() bool {
	region := c.body.Region
	if !region.Loaded() {
		return false
	}
	pos := c.body.Pos()
	center := region.TileOf(pos)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			tile := world.TileCoord{X: center.X + dx, Y: center.Y + dy}
			kind := region.Tile(tile)
			if kind != world.TileHorizontalBeam && kind != world.TileVerticalBeam {
				continue
			}
			if geom.DistLess(region.TileCenter(tile), pos, c.cfg.PoleRange) {
				return true
			}
		}
	}
	return false
}

func (c *Climber) tangent() geom.Vec2 {
	return Tangent(c.surface, c.Segment, c.Fraction, c.cfg.TangentStep)
}

func (c *Climber) setAnimation() {
	switch {
	case c.Mode == ClimbVertical:
		c.body.Animation = world.AnimationVerticalClimb
	case c.Hanging:
		c.body.Animation = world.AnimationHanging
	default:
		c.body.Animation = world.AnimationHorizontalClimb
	}
}

func (c *Climber) gravity() float64 {
	return c.body.Region.Gravity()
}

func (c *Climber) forceRadius() float64 {
	if c.registry == nil {
		return DefaultConfig().Bridge.ForceRadius
	}
	return c.registry.Config().Bridge.ForceRadius
}

// Tangent estimates the surface direction around (seg, t) by sampling dt
// either side, crossing into neighbouring segments at the ends.
func Tangent(s Surface, seg int, t, dt float64) geom.Vec2 {
	last := s.SegmentCount() - 1
	sample := func(seg int, t float64) geom.Vec2 {
		if t < 0 && seg > 0 {
			return s.PointOnSegment(seg-1, 1+t)
		}
		if t > 1 && seg < last {
			return s.PointOnSegment(seg+1, t-1)
		}
		return s.PointOnSegment(seg, t)
	}
	dir := sample(seg, t+dt).Sub(sample(seg, t-dt))
	if geom.LenSq(dir) < geom.Epsilon {
		dir = s.PointOnSegment(seg, 1).Sub(s.PointOnSegment(seg, 0))
	}
	if n := geom.Normalize(dir); n != geom.Zero {
		return n
	}
	return geom.Right
}

func registryPublisher(r *Registry) logging.Publisher {
	if r == nil {
		return nil
	}
	return r.Publisher()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi >= lo && v > hi {
		return hi
	}
	return v
}
