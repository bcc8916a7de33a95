package silk

import (
	"math"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
	"silkweaver/logging/sinks"
)

// newTestRegion builds an empty 40x20 room centred near the origin with no
// gravity. The tile holding (0,0) spans [0,20]x[-10,10].
func newTestRegion() *world.Region {
	return world.NewRegion(world.Config{ID: "test", Columns: 40, Rows: 20, OriginX: -400, OriginY: -210})
}

// wallAt fills the whole tile column that contains x.
func wallAt(region *world.Region, x float64) {
	col := region.TileOf(geom.V(x, 0)).X
	_, rows := region.Dimensions()
	for row := 0; row < rows; row++ {
		region.SetTile(world.TileCoord{X: col, Y: row}, world.TileSolid)
	}
}

func newTestRegistry(region *world.Region) (*Registry, *sinks.MemorySink) {
	sink := sinks.NewMemorySink()
	reg := NewRegistry(DefaultConfig(), sink)
	reg.RegionLoaded(region)
	return reg, sink
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vecApprox(a, b geom.Vec2, tol float64) bool {
	return approx(a.X(), b.X(), tol) && approx(a.Y(), b.Y(), tol)
}

// staticSurface is a fixed polyline that records the forces applied to it.
type staticSurface struct {
	id     string
	points []geom.Vec2
	active bool
	forces int
}

func newStaticSurface(points ...geom.Vec2) *staticSurface {
	return &staticSurface{id: "static", points: points, active: true}
}

func (s *staticSurface) SurfaceID() string { return s.id }

func (s *staticSurface) SegmentCount() int { return len(s.points) - 1 }

func (s *staticSurface) Active() bool { return s.active }

func (s *staticSurface) PointOnSegment(segment int, fraction float64) geom.Vec2 {
	segment = clampInt(segment, 0, len(s.points)-2)
	return geom.LerpVec(s.points[segment], s.points[segment+1], geom.Clamp01(fraction))
}

func (s *staticSurface) ApplyForceAt(_, _ geom.Vec2, _ float64) {
	s.forces++
}
