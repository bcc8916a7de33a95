package silk

import (
	"context"
	"fmt"
	"math"

	"silkweaver/internal/geom"
	"silkweaver/internal/world"
	"silkweaver/logging"
	silklog "silkweaver/logging/silk"
)

// BreakEvent is recorded once per bridge whose health ran out.
type BreakEvent struct {
	Bridge    *Bridge
	Region    *world.Region
	Point     geom.Vec2
	Path      []geom.Vec2
	Fragment1 []geom.Vec2
	Fragment2 []geom.Vec2
}

// Registry owns every bridge, grouped by region.
type Registry struct {
	cfg     Config
	pub     logging.Publisher
	regions map[*world.Region][]*Bridge
	nextID  uint64
	tick    uint64
	breaks  []BreakEvent
}

// NewRegistry builds an empty registry. A nil publisher discards events.
func NewRegistry(cfg Config, pub logging.Publisher) *Registry {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Registry{
		cfg:     cfg.normalized(),
		pub:     pub,
		regions: make(map[*world.Region][]*Bridge),
	}
}

// Config returns the normalized tunables.
func (r *Registry) Config() Config {
	return r.cfg
}

// SetTick stamps subsequent events with tick.
func (r *Registry) SetTick(tick uint64) {
	r.tick = tick
}

func (r *Registry) Tick() uint64 {
	return r.tick
}

// Publisher exposes the event publisher shared with per-actor state.
func (r *Registry) Publisher() logging.Publisher {
	return r.pub
}

// RegionLoaded makes sure the region has a bridge list.
func (r *Registry) RegionLoaded(region *world.Region) {
	if region == nil {
		return
	}
	if _, ok := r.regions[region]; !ok {
		r.regions[region] = nil
	}
}

// RegionUnloaded destroys and forgets every bridge in region.
func (r *Registry) RegionUnloaded(region *world.Region) {
	for _, b := range r.regions[region] {
		b.destroy()
	}
	delete(r.regions, region)
}

// Shutdown destroys every bridge in every region.
func (r *Registry) Shutdown() {
	for region := range r.regions {
		r.RegionUnloaded(region)
	}
	r.breaks = nil
}

// Bridges lists the bridges of a region. Callers must not modify the slice.
func (r *Registry) Bridges(region *world.Region) []*Bridge {
	return r.regions[region]
}

// Count returns the number of bridges across all regions.
func (r *Registry) Count() int {
	total := 0
	for _, list := range r.regions {
		total += len(list)
	}
	return total
}

// CreateBridge builds a bridge between two anchors and settles it for one
// tick. It returns nil when the region is not loaded or the anchors are
// farther apart than the maximum distance.
func (r *Registry) CreateBridge(region *world.Region, a1, a2 Anchor) *Bridge {
	if !region.Loaded() {
		return nil
	}
	distance := geom.Dist(a1.Position(), a2.Position())
	if distance > r.cfg.Builder.MaxDistance {
		return nil
	}
	r.nextID++
	b := NewBridge(fmt.Sprintf("bridge-%d", r.nextID), a1, a2, region, distance*r.cfg.Bridge.Slack, NodeCountFor(distance), r.cfg.Bridge)
	b.onBreak = r.handleBreak
	b.Update()
	r.RegionLoaded(region)
	r.regions[region] = append(r.regions[region], b)
	return b
}

// Remove drops a bridge from its region without emitting events.
func (r *Registry) Remove(b *Bridge) {
	if b == nil {
		return
	}
	b.destroy()
	r.prune(b.Region)
}

// prune rebuilds the region list without destroyed bridges. It allocates a
// new slice so callers ranging over the old one are unaffected.
func (r *Registry) prune(region *world.Region) {
	list, ok := r.regions[region]
	if !ok {
		return
	}
	kept := make([]*Bridge, 0, len(list))
	for _, b := range list {
		if b.Active() {
			kept = append(kept, b)
		}
	}
	r.regions[region] = kept
}

func (r *Registry) handleBreak(b *Bridge, point geom.Vec2) {
	path := append([]geom.Vec2(nil), b.Path()...)
	first, second := Fragments(path, point)
	r.breaks = append(r.breaks, BreakEvent{
		Bridge:    b,
		Region:    b.Region,
		Point:     point,
		Path:      path,
		Fragment1: first,
		Fragment2: second,
	})
	silklog.BridgeBroken(context.Background(), r.pub, r.tick, silklog.BridgeBrokenPayload{
		BridgeID:   b.ID,
		BreakPoint: toPoint(point),
		Path:       toPoints(path),
		Fragment1:  toPoints(first),
		Fragment2:  toPoints(second),
	})
	r.prune(b.Region)
}

// DrainBreaks returns and clears the break events recorded since the last call.
func (r *Registry) DrainBreaks() []BreakEvent {
	out := r.breaks
	r.breaks = nil
	return out
}

// Update steps every bridge in region, then removes bridges whose anchors
// became invalid. Removal repeats until stable because a removed bridge can
// strand bridges anchored on it.
func (r *Registry) Update(region *world.Region) {
	for _, b := range r.regions[region] {
		b.Update()
	}
	for {
		collapsed := false
		for _, b := range r.regions[region] {
			if !b.Active() || b.Valid() {
				continue
			}
			b.destroy()
			collapsed = true
			silklog.BridgeCollapsed(context.Background(), r.pub, r.tick, silklog.BridgeCollapsedPayload{
				BridgeID: b.ID,
				Reason:   "anchor_lost",
			})
		}
		if !collapsed {
			break
		}
		r.prune(region)
	}
}

// ClosestBridge finds the active bridge nearest to p within maxRange.
// exclude, when set, filters candidates out.
func (r *Registry) ClosestBridge(region *world.Region, p geom.Vec2, maxRange float64, exclude func(*Bridge) bool) (*Bridge, bool) {
	var best *Bridge
	bestDist := maxRange
	for _, b := range r.regions[region] {
		if !b.Active() || (exclude != nil && exclude(b)) {
			continue
		}
		if d := b.DistanceTo(p); d < bestDist {
			best, bestDist = b, d
		}
	}
	return best, best != nil
}

// RayTrace returns the nearest crossing of from→to with any bridge in region.
func (r *Registry) RayTrace(region *world.Region, from, to geom.Vec2, ignore *Bridge) (BridgeHit, bool) {
	best := BridgeHit{T: math.Inf(1)}
	found := false
	for _, b := range r.regions[region] {
		if b == ignore || !b.Active() {
			continue
		}
		path := b.Path()
		for i := 0; i+1 < len(path); i++ {
			point, t, ok := geom.SegmentIntersection(from, to, path[i], path[i+1])
			if !ok || t >= best.T {
				continue
			}
			_, frac := geom.ClosestOnSegment(point, path[i], path[i+1])
			best = BridgeHit{Bridge: b, Segment: i, Fraction: frac, Point: point, T: t}
			found = true
		}
	}
	return best, found
}

// RayBridgeHit satisfies CollisionProvider.
func (r *Registry) RayBridgeHit(region *world.Region, from, to geom.Vec2, ignore *Bridge) (BridgeHit, bool) {
	return r.RayTrace(region, from, to, ignore)
}

// RayTerrainHit satisfies CollisionProvider.
func (r *Registry) RayTerrainHit(region *world.Region, from, to geom.Vec2) (world.TileCoord, bool) {
	if !region.Loaded() {
		return world.TileCoord{}, false
	}
	return region.RayTerrainHit(from, to)
}

// RayTiles satisfies CollisionProvider.
func (r *Registry) RayTiles(region *world.Region, from, to geom.Vec2, out []world.TileCoord) []world.TileCoord {
	if !region.Loaded() {
		return out
	}
	return region.RayTiles(from, to, out)
}

// SilkAt reports whether a bridge passes through the middle of a tile, and
// whether the bridge runs mostly vertically there.
func (r *Registry) SilkAt(region *world.Region, tile world.TileCoord) (present, vertical bool) {
	center := region.TileCenter(tile)
	for _, b := range r.regions[region] {
		path := b.Path()
		for i := 0; i+1 < len(path); i++ {
			if geom.DistanceToSegment(center, path[i], path[i+1]) < r.cfg.Bridge.SilkTileDistance {
				d := path[i+1].Sub(path[i])
				return true, math.Abs(d.Y()) > math.Abs(d.X())
			}
		}
	}
	return false, false
}

func toPoint(v geom.Vec2) silklog.Point {
	return silklog.Point{X: v.X(), Y: v.Y()}
}

func toPoints(path []geom.Vec2) []silklog.Point {
	out := make([]silklog.Point, len(path))
	for i, p := range path {
		out[i] = toPoint(p)
	}
	return out
}
