package world

import (
	"math"

	"silkweaver/internal/geom"
)

// TileKind classifies a tile.
type TileKind uint8

const (
	TileEmpty TileKind = iota
	TileSolid
	TileHorizontalBeam
	TileVerticalBeam
)

// TileCoord addresses a tile by column and row. Row 0 is the bottom row.
type TileCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is one room: a tile grid plus the bodies inside it.
type Region struct {
	ID       string
	cfg      Config
	tiles    []TileKind
	bodies   []*Body
	unloaded bool
}

// NewRegion builds a region from a normalized config and its layout.
func NewRegion(cfg Config) *Region {
	cfg = cfg.normalized()
	r := &Region{
		ID:    cfg.ID,
		cfg:   cfg,
		tiles: make([]TileKind, cfg.Columns*cfg.Rows),
	}
	for i, line := range cfg.Layout {
		row := cfg.Rows - 1 - i
		for col, ch := range []byte(line) {
			var kind TileKind
			switch ch {
			case '#':
				kind = TileSolid
			case '-':
				kind = TileHorizontalBeam
			case '|':
				kind = TileVerticalBeam
			default:
				continue
			}
			r.SetTile(TileCoord{X: col, Y: row}, kind)
		}
	}
	return r
}

func (r *Region) Config() Config {
	return r.cfg
}

func (r *Region) TileSize() float64 {
	return r.cfg.TileSize
}

func (r *Region) Gravity() float64 {
	return r.cfg.Gravity
}

// Dimensions returns the column and row count.
func (r *Region) Dimensions() (int, int) {
	return r.cfg.Columns, r.cfg.Rows
}

// Loaded reports whether the region is still live.
func (r *Region) Loaded() bool {
	return r != nil && !r.unloaded
}

// MarkUnloaded flags the region as torn down. Anything anchored in it becomes invalid.
func (r *Region) MarkUnloaded() {
	if r != nil {
		r.unloaded = true
	}
}

func (r *Region) InBounds(c TileCoord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < r.cfg.Columns && c.Y < r.cfg.Rows
}

// Tile returns the tile kind. Out-of-bounds tiles are empty.
func (r *Region) Tile(c TileCoord) TileKind {
	if !r.InBounds(c) {
		return TileEmpty
	}
	return r.tiles[c.Y*r.cfg.Columns+c.X]
}

func (r *Region) SetTile(c TileCoord, kind TileKind) {
	if !r.InBounds(c) {
		return
	}
	r.tiles[c.Y*r.cfg.Columns+c.X] = kind
}

func (r *Region) IsSolid(c TileCoord) bool {
	return r.Tile(c) == TileSolid
}

// SolidAt reports whether the tile under a world position is solid.
func (r *Region) SolidAt(p geom.Vec2) bool {
	return r.IsSolid(r.TileOf(p))
}

// TileOf maps a world position onto its tile.
func (r *Region) TileOf(p geom.Vec2) TileCoord {
	local := r.toLocal(p)
	return TileCoord{X: int(math.Floor(local.X())), Y: int(math.Floor(local.Y()))}
}

// TileRect returns the world-space bounds of a tile.
func (r *Region) TileRect(c TileCoord) geom.Rect {
	size := r.cfg.TileSize
	return geom.NewRect(r.cfg.OriginX+float64(c.X)*size, r.cfg.OriginY+float64(c.Y)*size, size, size)
}

// TileCenter returns the world-space middle of a tile.
func (r *Region) TileCenter(c TileCoord) geom.Vec2 {
	return r.TileRect(c).Center()
}

func (r *Region) toLocal(p geom.Vec2) geom.Vec2 {
	return geom.Vec2{(p.X() - r.cfg.OriginX) / r.cfg.TileSize, (p.Y() - r.cfg.OriginY) / r.cfg.TileSize}
}

// MaxRayTiles bounds tile traversal so a single query never walks the whole grid.
const MaxRayTiles = 256

// RayTiles appends the tiles crossed by from→to, in traversal order, starting
// with the tile containing from and ending with the tile containing to.
func (r *Region) RayTiles(from, to geom.Vec2, out []TileCoord) []TileCoord {
	start := r.toLocal(from)
	end := r.toLocal(to)
	cell := TileCoord{X: int(math.Floor(start.X())), Y: int(math.Floor(start.Y()))}
	last := TileCoord{X: int(math.Floor(end.X())), Y: int(math.Floor(end.Y()))}
	out = append(out, cell)
	if cell == last {
		return out
	}

	dir := end.Sub(start)
	stepX, tMaxX, tDeltaX := traversalAxis(start.X(), dir.X(), cell.X)
	stepY, tMaxY, tDeltaY := traversalAxis(start.Y(), dir.Y(), cell.Y)

	for i := 0; i < MaxRayTiles && cell != last; i++ {
		if tMaxX < tMaxY {
			if tMaxX > 1 {
				break
			}
			cell.X += stepX
			tMaxX += tDeltaX
		} else {
			if tMaxY > 1 {
				break
			}
			cell.Y += stepY
			tMaxY += tDeltaY
		}
		out = append(out, cell)
	}
	if out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

func traversalAxis(origin, d float64, cell int) (int, float64, float64) {
	switch {
	case d > geom.Epsilon:
		return 1, (float64(cell+1) - origin) / d, 1 / d
	case d < -geom.Epsilon:
		return -1, (origin - float64(cell)) / -d, 1 / -d
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}

// RayTerrainHit returns the first solid tile crossed by from→to.
func (r *Region) RayTerrainHit(from, to geom.Vec2) (TileCoord, bool) {
	var buf [32]TileCoord
	for _, c := range r.RayTiles(from, to, buf[:0]) {
		if r.IsSolid(c) {
			return c, true
		}
	}
	return TileCoord{}, false
}

// LineOfSight reports whether no solid tile lies between the two points.
func (r *Region) LineOfSight(from, to geom.Vec2) bool {
	_, hit := r.RayTerrainHit(from, to)
	return !hit
}
