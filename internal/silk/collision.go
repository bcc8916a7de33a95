package silk

import (
	"silkweaver/internal/geom"
	"silkweaver/internal/world"
)

// BridgeHit describes where a ray first crosses a bridge.
type BridgeHit struct {
	Bridge   *Bridge
	Segment  int
	Fraction float64
	Point    geom.Vec2
	// T is the parametric position of Point along the queried ray.
	T float64
}

// CollisionProvider answers the geometric queries the tether, builder and
// impact code need. ignore, when non-nil, is skipped by bridge queries.
type CollisionProvider interface {
	RayBridgeHit(region *world.Region, from, to geom.Vec2, ignore *Bridge) (BridgeHit, bool)
	RayTerrainHit(region *world.Region, from, to geom.Vec2) (world.TileCoord, bool)
	RayTiles(region *world.Region, from, to geom.Vec2, out []world.TileCoord) []world.TileCoord
}

// TerrainHit refines a terrain ray hit to the boundary point of the first
// solid tile and its outward normal. When the slab test misses because the
// ray starts inside the tile, the end point is clamped into the tile and the
// normal points back along the ray.
func TerrainHit(cp CollisionProvider, region *world.Region, from, to geom.Vec2) (geom.Vec2, geom.Vec2, bool) {
	if geom.DistLess(from, to, 0.1) {
		return to, geom.Zero, false
	}
	tile, ok := cp.RayTerrainHit(region, from, to)
	if !ok {
		return to, geom.Zero, false
	}
	rect := region.TileRect(tile)
	point, normal, _, hit := rect.RayHit(from, to)
	if !hit {
		inner := geom.Rect{Min: rect.Min.Add(geom.V(0.1, 0.1)), Max: rect.Max.Sub(geom.V(0.1, 0.1))}
		return inner.ClampPoint(to), geom.DirVec(to, from), true
	}
	return point, normal, true
}
