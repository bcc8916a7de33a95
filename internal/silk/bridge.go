package silk

import (
	"math"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
)

// Surface is anything an actor can climb along.
type Surface interface {
	SurfaceID() string
	PointOnSegment(segment int, fraction float64) geom.Vec2
	SegmentCount() int
	Active() bool
	ApplyForceAt(point, force geom.Vec2, radius float64)
}

type bridgeNode struct {
	pos      geom.Vec2
	lastPos  geom.Vec2
	vel      geom.Vec2
	collided bool
}

// Bridge is a simulated cable of interior nodes hung between two anchors.
type Bridge struct {
	ID        string
	Anchor1   Anchor
	Anchor2   Anchor
	Region    *world.Region
	MaxLength float64
	Health    float64

	cfg       BridgeConfig
	nodes     []bridgeNode
	path      []geom.Vec2
	destroyed bool
	onBreak   func(*Bridge, geom.Vec2)
}

// NodeCountFor picks the interior node count from the anchor distance.
func NodeCountFor(distance float64) int {
	switch {
	case distance < 50:
		return 3
	case distance < 100:
		return 5
	case distance < 200:
		return 8
	case distance < 400:
		return 12
	default:
		return 15
	}
}

// NewBridge places nodeCount nodes evenly along the straight line between the anchors.
func NewBridge(id string, a1, a2 Anchor, region *world.Region, maxLength float64, nodeCount int, cfg BridgeConfig) *Bridge {
	nodeCount = int(geom.Clamp(float64(nodeCount), 3, 15))
	b := &Bridge{
		ID:        id,
		Anchor1:   a1,
		Anchor2:   a2,
		Region:    region,
		MaxLength: maxLength,
		Health:    cfg.Health,
		cfg:       cfg,
		nodes:     make([]bridgeNode, nodeCount),
		path:      make([]geom.Vec2, nodeCount+2),
	}
	start, end := a1.Position(), a2.Position()
	for i := range b.nodes {
		pos := geom.LerpVec(start, end, float64(i+1)/float64(nodeCount+1))
		b.nodes[i] = bridgeNode{pos: pos, lastPos: pos}
	}
	b.refreshPath()
	return b
}

func (b *Bridge) SurfaceID() string {
	return b.ID
}

// Active reports whether the bridge still exists.
func (b *Bridge) Active() bool {
	return b != nil && !b.destroyed
}

// Valid reports whether the bridge exists and both anchors hold.
func (b *Bridge) Valid() bool {
	return b.Active() && b.Anchor1.Valid(b.Region) && b.Anchor2.Valid(b.Region)
}

// NodeCount returns the number of interior nodes.
func (b *Bridge) NodeCount() int {
	return len(b.nodes)
}

// Path returns the cached anchor1, nodes..., anchor2 sequence. Callers must
// not modify it.
func (b *Bridge) Path() []geom.Vec2 {
	return b.path
}

// SegmentCount is the number of path segments.
func (b *Bridge) SegmentCount() int {
	return len(b.path) - 1
}

// Length sums the path segment lengths.
func (b *Bridge) Length() float64 {
	total := 0.0
	for i := 0; i+1 < len(b.path); i++ {
		total += geom.Dist(b.path[i], b.path[i+1])
	}
	return total
}

// MaxNodeSpeed returns the largest node velocity magnitude.
func (b *Bridge) MaxNodeSpeed() float64 {
	best := 0.0
	for _, n := range b.nodes {
		best = math.Max(best, n.vel.Len())
	}
	return best
}

// Update advances the cable one tick. It does nothing while an anchor is invalid.
func (b *Bridge) Update() {
	if !b.Valid() {
		return
	}
	cfg := b.cfg
	for i := range b.nodes {
		n := &b.nodes[i]
		n.lastPos = n.pos
		n.collided = false
		n.vel = n.vel.Sub(geom.Vec2{0, cfg.Gravity}).Mul(cfg.Damping)
		n.pos = n.pos.Add(n.vel)
	}

	start, end := b.Anchor1.Position(), b.Anchor2.Position()
	for iter := 0; iter < cfg.Iterations; iter++ {
		b.relax(start, end)
		b.collideTerrain()
	}

	for i := range b.nodes {
		n := &b.nodes[i]
		if !n.collided {
			n.vel = n.pos.Sub(n.lastPos)
		}
	}
	b.refreshPath()
}

// relax runs Jacobi distance-constraint sweeps over anchor, nodes, anchor.
// Corrections are gathered from the current positions and applied together,
// half to each end; the halves aimed at the anchors are discarded. The total
// rest length never exceeds MaxLength.
func (b *Bridge) relax(start, end geom.Vec2) {
	count := len(b.nodes)
	rest := geom.Dist(start, end) * b.cfg.Slack
	if b.MaxLength > 0 {
		rest = math.Min(rest, b.MaxLength)
	}
	segment := rest / float64(count+1)
	corrections := make([]geom.Vec2, count)
	point := func(i int) geom.Vec2 {
		switch i {
		case 0:
			return start
		case count + 1:
			return end
		default:
			return b.nodes[i-1].pos
		}
	}
	for sweep := 0; sweep < b.cfg.ConstraintSweeps; sweep++ {
		for i := range corrections {
			corrections[i] = geom.Zero
		}
		for i := 0; i <= count; i++ {
			a, c := point(i), point(i+1)
			delta := c.Sub(a)
			dist := delta.Len()
			if dist < 0.001 {
				continue
			}
			fix := delta.Mul((dist - segment) / dist * 0.5)
			if i != 0 {
				corrections[i-1] = corrections[i-1].Add(fix)
			}
			if i+1 != count+1 {
				corrections[i] = corrections[i].Sub(fix)
			}
		}
		for i := range b.nodes {
			b.nodes[i].pos = b.nodes[i].pos.Add(corrections[i].Mul(0.5))
		}
	}
}

// collideTerrain moves nodes that ended up inside a solid tile out through
// the nearest open face and reflects their velocity.
func (b *Bridge) collideTerrain() {
	region := b.Region
	for i := range b.nodes {
		n := &b.nodes[i]
		tile := region.TileOf(n.pos)
		if !region.IsSolid(tile) {
			continue
		}
		rect := region.TileRect(tile)
		center := rect.Center()
		pushed, normal, ok := exitTile(region, tile, n.pos)
		if !ok {
			normal = geom.DirVec(center, n.pos)
			if normal == geom.Zero {
				normal = geom.Up
			}
			pushed = center.Add(normal.Mul(region.TileSize() * 0.5))
		}
		n.pos = pushed
		n.vel = geom.Reflect(n.vel, normal).Mul(b.cfg.TerrainRestitution)
		n.collided = true
	}
}

// exitTile finds the shallowest face of tile whose neighbour is open and
// returns the point just outside it together with the face normal.
func exitTile(region *world.Region, tile world.TileCoord, p geom.Vec2) (geom.Vec2, geom.Vec2, bool) {
	const margin = 0.1
	rect := region.TileRect(tile)
	faces := [4]struct {
		depth  float64
		normal geom.Vec2
		step   world.TileCoord
		out    geom.Vec2
	}{
		{p.X() - rect.Min.X(), geom.Left, world.TileCoord{X: -1}, geom.Vec2{rect.Min.X() - margin, p.Y()}},
		{rect.Max.X() - p.X(), geom.Right, world.TileCoord{X: 1}, geom.Vec2{rect.Max.X() + margin, p.Y()}},
		{p.Y() - rect.Min.Y(), geom.Down, world.TileCoord{Y: -1}, geom.Vec2{p.X(), rect.Min.Y() - margin}},
		{rect.Max.Y() - p.Y(), geom.Up, world.TileCoord{Y: 1}, geom.Vec2{p.X(), rect.Max.Y() + margin}},
	}
	best := -1
	for i, face := range faces {
		neighbour := world.TileCoord{X: tile.X + face.step.X, Y: tile.Y + face.step.Y}
		if region.IsSolid(neighbour) {
			continue
		}
		if best < 0 || face.depth < faces[best].depth {
			best = i
		}
	}
	if best < 0 {
		return p, geom.Zero, false
	}
	return faces[best].out, faces[best].normal, true
}

func (b *Bridge) refreshPath() {
	b.path[0] = b.Anchor1.Position()
	for i, n := range b.nodes {
		b.path[i+1] = n.pos
	}
	b.path[len(b.path)-1] = b.Anchor2.Position()
}

// PointOnSegment interpolates along a path segment. Segment and fraction are clamped.
func (b *Bridge) PointOnSegment(segment int, fraction float64) geom.Vec2 {
	if len(b.path) < 2 {
		return b.Anchor1.Position()
	}
	segment = int(geom.Clamp(float64(segment), 0, float64(len(b.path)-2)))
	return geom.LerpVec(b.path[segment], b.path[segment+1], geom.Clamp01(fraction))
}

// ClosestPoint projects p onto the path and returns the projection with its
// segment index and fraction.
func (b *Bridge) ClosestPoint(p geom.Vec2) (geom.Vec2, int, float64) {
	if len(b.path) < 2 {
		return b.Anchor1.Position(), 0, 0
	}
	bestPoint, bestSeg, bestFrac := b.path[0], 0, 0.0
	bestDist := math.MaxFloat64
	for i := 0; i+1 < len(b.path); i++ {
		proj, frac := geom.ClosestOnSegment(p, b.path[i], b.path[i+1])
		if d := geom.LenSq(p.Sub(proj)); d < bestDist {
			bestDist, bestPoint, bestSeg, bestFrac = d, proj, i, frac
		}
	}
	return bestPoint, bestSeg, bestFrac
}

// DistanceTo returns the distance from p to the path.
func (b *Bridge) DistanceTo(p geom.Vec2) float64 {
	closest, _, _ := b.ClosestPoint(p)
	return geom.Dist(p, closest)
}

// ApplyForceAt pushes the two nodes bracketing the point closest to p, split
// by proximity, and a weaker share onto up to ForceSpread nodes beyond each.
// Points farther than radius from the cable are ignored; a non-positive
// radius disables the check.
func (b *Bridge) ApplyForceAt(p, force geom.Vec2, radius float64) {
	if !b.Active() || len(b.nodes) == 0 {
		return
	}
	hit, seg, _ := b.ClosestPoint(p)
	if radius > 0 && !geom.DistLess(hit, p, radius) {
		return
	}
	last := len(b.nodes) - 1
	left := int(geom.Clamp(float64(seg-1), 0, float64(last)))
	right := int(geom.Clamp(float64(seg), 0, float64(last)))

	leftDist := geom.Dist(hit, b.nodes[left].pos)
	rightDist := geom.Dist(hit, b.nodes[right].pos)
	total := leftDist + rightDist
	leftWeight, rightWeight := 0.5, 0.5
	if total > geom.Epsilon {
		leftWeight = 1 - leftDist/total
		rightWeight = 1 - rightDist/total
	}

	scale := b.cfg.ForceScale / b.cfg.NodeMass
	b.nodes[left].vel = b.nodes[left].vel.Add(force.Mul(leftWeight * scale))
	b.nodes[right].vel = b.nodes[right].vel.Add(force.Mul(rightWeight * scale))
	for s := 1; s <= b.cfg.ForceSpread; s++ {
		share := force.Mul(0.25 / (1 + 2*float64(s)) * scale)
		if l := left - s; l >= 0 {
			b.nodes[l].vel = b.nodes[l].vel.Add(share)
		}
		if r := right + s; r <= last {
			b.nodes[r].vel = b.nodes[r].vel.Add(share)
		}
	}
}

// TakeDamage reduces health. The first time health reaches zero the bridge
// is destroyed and its break handler runs with the damage point.
func (b *Bridge) TakeDamage(amount float64, point geom.Vec2) {
	if !b.Active() || amount <= 0 || math.IsNaN(amount) {
		return
	}
	b.Health -= amount
	if b.Health > 0 {
		return
	}
	b.Health = 0
	b.destroyed = true
	if b.onBreak != nil {
		b.onBreak(b, point)
	}
}

// destroy marks the bridge gone without a break event.
func (b *Bridge) destroy() {
	b.destroyed = true
}

// Fragments splits path at the segment nearest to point. The first fragment
// runs from the start through point, the second from point to the end.
func Fragments(path []geom.Vec2, point geom.Vec2) ([]geom.Vec2, []geom.Vec2) {
	if len(path) < 2 {
		return nil, nil
	}
	best, bestDist := 0, math.MaxFloat64
	for i := 0; i+1 < len(path); i++ {
		if d := geom.DistanceToSegment(point, path[i], path[i+1]); d < bestDist {
			best, bestDist = i, d
		}
	}
	first := make([]geom.Vec2, 0, best+2)
	first = append(first, path[:best+1]...)
	first = append(first, point)
	second := make([]geom.Vec2, 0, len(path)-best)
	second = append(second, point)
	second = append(second, path[best+1:]...)
	return first, second
}
