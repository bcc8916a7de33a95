package silk

import (
	"silkweaver/internal/geom"
	"silkweaver/internal/world"
)

// Impact records one body crossing a bridge during a tick.
type Impact struct {
	Body   *world.Body
	Bridge *Bridge
	Point  geom.Vec2
	Damage float64
}

// ResolveImpacts checks every creature and thrown weapon in region against
// the region's bridges. Creatures bounce off and damage the bridge; a thrown
// weapon cuts it outright. Each body registers at most one impact per call.
func ResolveImpacts(reg *Registry, region *world.Region) []Impact {
	if reg == nil || !region.Loaded() {
		return nil
	}
	cfg := reg.Config().Impact
	radius := reg.Config().Bridge.ForceRadius
	var impacts []Impact
	for _, body := range region.Bodies() {
		if body.Removed || len(body.Parts) == 0 {
			continue
		}
		switch {
		case body.Kind == world.KindWeapon && body.Thrown:
			part := &body.Parts[0]
			bridge, point, _, ok := firstCrossing(reg.Bridges(region), part.LastPos, part.Pos)
			if !ok {
				continue
			}
			damage := bridge.Health + 1
			bridge.TakeDamage(damage, point)
			impacts = append(impacts, Impact{Body: body, Bridge: bridge, Point: point, Damage: damage})
		case body.Kind == world.KindCreature:
			if impact, ok := creatureImpact(reg.Bridges(region), body, cfg, radius); ok {
				impacts = append(impacts, impact)
			}
		}
	}
	return impacts
}

func creatureImpact(bridges []*Bridge, body *world.Body, cfg ImpactConfig, radius float64) (Impact, bool) {
	for i := range body.Parts {
		part := &body.Parts[i]
		bridge, point, segDir, ok := firstCrossing(bridges, part.LastPos, part.Pos)
		if !ok {
			continue
		}
		moveDir := geom.DirVec(part.LastPos, part.Pos)
		normal := geom.Perpendicular(segDir)
		if normal.Dot(moveDir) < 0 {
			normal = normal.Mul(-1)
		}
		speed := part.Vel.Len()
		part.Pos = point.Sub(moveDir.Mul(part.Radius*0.5 + 1))
		part.Vel = geom.Reflect(part.Vel, normal).Mul(cfg.Restitution)

		damage := speed * part.Mass * cfg.DamageFactor
		bridge.ApplyForceAt(point, moveDir.Mul(speed*part.Mass*cfg.ForceFactor), radius)
		bridge.TakeDamage(damage, point)
		return Impact{Body: body, Bridge: bridge, Point: point, Damage: damage}, true
	}
	return Impact{}, false
}

// firstCrossing finds the earliest bridge segment crossed by from→to and
// returns the unit direction of that segment.
func firstCrossing(bridges []*Bridge, from, to geom.Vec2) (*Bridge, geom.Vec2, geom.Vec2, bool) {
	if geom.DistLess(from, to, geom.Epsilon) {
		return nil, geom.Zero, geom.Zero, false
	}
	var (
		best               *Bridge
		bestPoint, bestDir geom.Vec2
		bestT              = 2.0
	)
	for _, b := range bridges {
		if !b.Active() {
			continue
		}
		path := b.Path()
		for i := 0; i+1 < len(path); i++ {
			point, t, ok := geom.SegmentIntersection(from, to, path[i], path[i+1])
			if !ok || t >= bestT {
				continue
			}
			best, bestPoint, bestT = b, point, t
			bestDir = geom.DirVec(path[i], path[i+1])
		}
	}
	return best, bestPoint, bestDir, best != nil
}
