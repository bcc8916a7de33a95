package silk

import (
	"math"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
)

// AnchorKind tags which variant of Anchor is active.
type AnchorKind uint8

const (
	AnchorTerrain AnchorKind = iota
	AnchorBridge
	AnchorObject
)

func (k AnchorKind) String() string {
	switch k {
	case AnchorTerrain:
		return "terrain"
	case AnchorBridge:
		return "bridge"
	case AnchorObject:
		return "object"
	default:
		return "unknown"
	}
}

// Anchor fixes a bridge endpoint. Only the fields of the active Kind are used.
type Anchor struct {
	Kind AnchorKind

	// Point is the fixed position of a terrain anchor and the last known
	// position of the other variants.
	Point geom.Vec2

	Bridge   *Bridge
	Segment  int
	Fraction float64

	Body   *world.Body
	Part   int
	Offset geom.Vec2
}

// TerrainAnchor fixes an endpoint at a world point.
func TerrainAnchor(point geom.Vec2) Anchor {
	return Anchor{Kind: AnchorTerrain, Point: point}
}

// BridgeAnchor rides another bridge at the point closest to point.
func BridgeAnchor(bridge *Bridge, point geom.Vec2) Anchor {
	closest, seg, frac := bridge.ClosestPoint(point)
	return Anchor{Kind: AnchorBridge, Point: closest, Bridge: bridge, Segment: seg, Fraction: frac}
}

// ObjectAnchor follows the part of body nearest to point, keeping the offset.
// A body without parts degrades to a terrain anchor.
func ObjectAnchor(body *world.Body, point geom.Vec2) Anchor {
	if body == nil || len(body.Parts) == 0 {
		return TerrainAnchor(point)
	}
	best, bestDist := 0, math.MaxFloat64
	for i, part := range body.Parts {
		if d := geom.Dist(point, part.Pos); d < bestDist {
			best, bestDist = i, d
		}
	}
	return Anchor{
		Kind:   AnchorObject,
		Point:  point,
		Body:   body,
		Part:   best,
		Offset: point.Sub(body.Parts[best].Pos),
	}
}

// Position derives the anchor's current world position.
func (a Anchor) Position() geom.Vec2 {
	switch a.Kind {
	case AnchorBridge:
		if a.Bridge != nil && a.Bridge.Active() {
			return a.Bridge.PointOnSegment(a.Segment, a.Fraction)
		}
	case AnchorObject:
		if part := a.Body.Part(a.Part); part != nil {
			return part.Pos.Add(a.Offset)
		}
	}
	return a.Point
}

// Valid reports whether the anchor may still be used inside region.
func (a Anchor) Valid(region *world.Region) bool {
	if !region.Loaded() {
		return false
	}
	switch a.Kind {
	case AnchorTerrain:
		return true
	case AnchorBridge:
		return a.Bridge != nil && a.Bridge.Active() && a.Bridge.Region == region
	case AnchorObject:
		return a.Body.Valid() && a.Body.Region == region
	default:
		return false
	}
}
