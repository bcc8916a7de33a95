package geom

import "math"

// Rect is an axis-aligned box with Min at the lower-left corner.
type Rect struct {
	Min Vec2
	Max Vec2
}

// NewRect builds a rect from its lower-left corner and size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{Min: Vec2{x, y}, Max: Vec2{x + w, y + h}}
}

// Center returns the midpoint of the rect.
func (r Rect) Center() Vec2 {
	return LerpVec(r.Min, r.Max, 0.5)
}

// Contains reports whether p lies inside or on the rect.
func (r Rect) Contains(p Vec2) bool {
	return p.X() >= r.Min.X() && p.X() <= r.Max.X() && p.Y() >= r.Min.Y() && p.Y() <= r.Max.Y()
}

// Grow expands the rect by d on every side.
func (r Rect) Grow(d float64) Rect {
	return Rect{Min: r.Min.Sub(Vec2{d, d}), Max: r.Max.Add(Vec2{d, d})}
}

// ClampPoint returns the point of the rect nearest to p.
func (r Rect) ClampPoint(p Vec2) Vec2 {
	return Vec2{Clamp(p.X(), r.Min.X(), r.Max.X()), Clamp(p.Y(), r.Min.Y(), r.Max.Y())}
}

// RayHit intersects the segment from→to with the rect using the slab method.
// It returns the entry point, the face normal and the parametric entry time.
// A segment starting inside the rect reports t=0 and the normal opposing the
// direction of travel.
func (r Rect) RayHit(from, to Vec2) (Vec2, Vec2, float64, bool) {
	dir := to.Sub(from)
	tMin, tMax := 0.0, 1.0
	for axis := 0; axis < 2; axis++ {
		d := dir[axis]
		lo, hi := r.Min[axis], r.Max[axis]
		if math.Abs(d) < 0.0001 {
			if from[axis] < lo || from[axis] > hi {
				return Zero, Zero, 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (lo - from[axis]) * inv
		t2 := (hi - from[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return Zero, Zero, 0, false
		}
	}
	point := from.Add(dir.Mul(tMin))
	return point, r.FaceNormal(point, dir), tMin, true
}

// FaceNormal picks the outward normal of the face p lies on, within 0.1. When
// p is not on a face the normal opposes the dominant axis of dir.
func (r Rect) FaceNormal(p, dir Vec2) Vec2 {
	const tolerance = 0.1
	switch {
	case math.Abs(p.X()-r.Min.X()) < tolerance:
		return Left
	case math.Abs(p.X()-r.Max.X()) < tolerance:
		return Right
	case math.Abs(p.Y()-r.Min.Y()) < tolerance:
		return Down
	case math.Abs(p.Y()-r.Max.Y()) < tolerance:
		return Up
	}
	if math.Abs(dir.X()) > math.Abs(dir.Y()) {
		return Vec2{-Sign(dir.X()), 0}
	}
	if math.Abs(dir.Y()) < Epsilon {
		return Up
	}
	return Vec2{0, -Sign(dir.Y())}
}
