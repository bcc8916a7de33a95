package world

import "silkweaver/internal/geom"

// AddBody places a body in the region.
func (r *Region) AddBody(b *Body) {
	if b == nil {
		return
	}
	b.Region = r
	b.Removed = false
	r.bodies = append(r.bodies, b)
}

// RemoveBody detaches a body and marks it removed.
func (r *Region) RemoveBody(b *Body) {
	for i, candidate := range r.bodies {
		if candidate == b {
			r.bodies = append(r.bodies[:i], r.bodies[i+1:]...)
			b.Removed = true
			return
		}
	}
}

// Bodies returns the live bodies in insertion order.
func (r *Region) Bodies() []*Body {
	return r.bodies
}

// Body looks a body up by ID.
func (r *Region) Body(id string) *Body {
	for _, b := range r.bodies {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Step advances a body by one tick with gravity and tile collision. It is the
// stand-in for the host game's body simulation.
func (r *Region) Step(b *Body) {
	if !b.Valid() {
		return
	}
	b.Grounded = false
	for i := range b.Parts {
		part := &b.Parts[i]
		part.LastPos = part.Pos
		if b.Mode != ModeClimbing {
			part.Vel = part.Vel.Sub(geom.Vec2{0, r.cfg.Gravity})
		}
		part.Pos = part.Pos.Add(part.Vel)
		if r.resolveTiles(part) {
			b.Grounded = true
		}
		if b.Grounded {
			part.Vel = geom.Vec2{part.Vel.X() * 0.8, part.Vel.Y()}
		}
	}
	if b.BodyDistance > 0 && len(b.Parts) > 1 {
		ConstrainParts(&b.Parts[0], &b.Parts[1], b.BodyDistance)
	}
}

// ConstrainParts pulls two parts to exactly distance apart, weighted by mass.
func ConstrainParts(a, b *BodyPart, distance float64) {
	delta := b.Pos.Sub(a.Pos)
	dist := delta.Len()
	if dist < geom.Epsilon {
		return
	}
	total := a.Mass + b.Mass
	if total <= 0 {
		return
	}
	dir := delta.Mul(1 / dist)
	diff := dist - distance
	a.Pos = a.Pos.Add(dir.Mul(diff * b.Mass / total))
	b.Pos = b.Pos.Sub(dir.Mul(diff * a.Mass / total))
}

// resolveTiles pushes a part out of solid tiles on each axis and reports
// whether it landed on a floor.
func (r *Region) resolveTiles(part *BodyPart) bool {
	grounded := false
	rad := part.Radius
	if below := r.TileOf(part.Pos.Sub(geom.Vec2{0, rad})); r.IsSolid(below) && part.Vel.Y() <= 0 {
		top := r.TileRect(below).Max.Y()
		part.Pos = geom.Vec2{part.Pos.X(), top + rad}
		part.Vel = geom.Vec2{part.Vel.X(), 0}
		grounded = true
	}
	if above := r.TileOf(part.Pos.Add(geom.Vec2{0, rad})); r.IsSolid(above) && part.Vel.Y() > 0 {
		bottom := r.TileRect(above).Min.Y()
		part.Pos = geom.Vec2{part.Pos.X(), bottom - rad}
		part.Vel = geom.Vec2{part.Vel.X(), 0}
	}
	if left := r.TileOf(part.Pos.Sub(geom.Vec2{rad, 0})); r.IsSolid(left) && part.Vel.X() <= 0 {
		edge := r.TileRect(left).Max.X()
		part.Pos = geom.Vec2{edge + rad, part.Pos.Y()}
		part.Vel = geom.Vec2{0, part.Vel.Y()}
	}
	if right := r.TileOf(part.Pos.Add(geom.Vec2{rad, 0})); r.IsSolid(right) && part.Vel.X() >= 0 {
		edge := r.TileRect(right).Min.X()
		part.Pos = geom.Vec2{edge - rad, part.Pos.Y()}
		part.Vel = geom.Vec2{0, part.Vel.Y()}
	}
	return grounded
}
