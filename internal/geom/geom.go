package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon guards divisions and near-parallel tests.
const Epsilon = 1e-6

// Vec2 is the shared 2D vector type. Y grows upward.
type Vec2 = mgl64.Vec2

var (
	Zero  = Vec2{0, 0}
	Up    = Vec2{0, 1}
	Down  = Vec2{0, -1}
	Left  = Vec2{-1, 0}
	Right = Vec2{1, 0}
)

// V builds a vector.
func V(x, y float64) Vec2 {
	return Vec2{x, y}
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	return mgl64.Clamp(value, min, max)
}

// Clamp01 limits value to [0, 1].
func Clamp01(value float64) float64 {
	return mgl64.Clamp(value, 0, 1)
}

// Lerp interpolates between a and b without clamping t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpVec interpolates between two points.
func LerpVec(a, b Vec2, t float64) Vec2 {
	return a.Add(b.Sub(a).Mul(t))
}

// InverseLerp reports where value sits between a and b, clamped to [0, 1].
func InverseLerp(a, b, value float64) float64 {
	if math.Abs(b-a) < Epsilon {
		return 0
	}
	return Clamp01((value - a) / (b - a))
}

// MoveTowards steps current toward target by at most maxDelta.
func MoveTowards(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	if target > current {
		return current + maxDelta
	}
	return current - maxDelta
}

// Sign returns -1, 0 or 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Dist returns the distance between two points.
func Dist(a, b Vec2) float64 {
	return b.Sub(a).Len()
}

// DistLess reports whether two points are closer than d.
func DistLess(a, b Vec2, d float64) bool {
	delta := b.Sub(a)
	return delta.Dot(delta) < d*d
}

// LenSq returns the squared length of v.
func LenSq(v Vec2) float64 {
	return v.Dot(v)
}

// Normalize returns the unit vector of v, or zero for degenerate input.
func Normalize(v Vec2) Vec2 {
	l := v.Len()
	if l < Epsilon {
		return Zero
	}
	return v.Mul(1 / l)
}

// DirVec returns the unit direction from a to b.
func DirVec(a, b Vec2) Vec2 {
	return Normalize(b.Sub(a))
}

// Perpendicular rotates v by -90 degrees.
func Perpendicular(v Vec2) Vec2 {
	return Vec2{v.Y(), -v.X()}
}

// Cross returns the z component of the 3D cross product.
func Cross(a, b Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// Reflect mirrors v about a unit normal.
func Reflect(v, normal Vec2) Vec2 {
	return v.Sub(normal.Mul(2 * v.Dot(normal)))
}

// ClampLength scales v down so its length does not exceed max.
func ClampLength(v Vec2, max float64) Vec2 {
	l := v.Len()
	if l <= max || l < Epsilon {
		return v
	}
	return v.Mul(max / l)
}

// AngleBetween returns the unsigned angle in degrees between a and b.
func AngleBetween(a, b Vec2) float64 {
	la, lb := a.Len(), b.Len()
	if la < Epsilon || lb < Epsilon {
		return 0
	}
	cos := Clamp(a.Dot(b)/(la*lb), -1, 1)
	return math.Acos(cos) * 180 / math.Pi
}

// SegmentIntersection intersects p→p2 with q→q2. The returned t is the
// parametric position on p→p2. Near-parallel segments never intersect.
func SegmentIntersection(p, p2, q, q2 Vec2) (Vec2, float64, bool) {
	r := p2.Sub(p)
	s := q2.Sub(q)
	rxs := Cross(r, s)
	if math.Abs(rxs) < Epsilon {
		return Zero, 0, false
	}
	qp := q.Sub(p)
	t := Cross(qp, s) / rxs
	u := Cross(qp, r) / rxs
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Zero, 0, false
	}
	return p.Add(r.Mul(t)), t, true
}

// ClosestOnSegment projects point onto a→b and returns the projection and its
// clamped fraction along the segment.
func ClosestOnSegment(point, a, b Vec2) (Vec2, float64) {
	ab := b.Sub(a)
	len2 := ab.Dot(ab)
	if len2 < Epsilon {
		return a, 0
	}
	t := Clamp01(point.Sub(a).Dot(ab) / len2)
	return a.Add(ab.Mul(t)), t
}

// DistanceToSegment returns the distance from point to the segment a→b.
func DistanceToSegment(point, a, b Vec2) float64 {
	proj, _ := ClosestOnSegment(point, a, b)
	return Dist(point, proj)
}

// HorizontalCrossPoint returns where the line a→b crosses y.
func HorizontalCrossPoint(a, b Vec2, y float64) Vec2 {
	dy := b.Y() - a.Y()
	if math.Abs(dy) < Epsilon {
		return Vec2{a.X(), y}
	}
	t := (y - a.Y()) / dy
	return Vec2{a.X() + (b.X()-a.X())*t, y}
}

// VerticalCrossPoint returns where the line a→b crosses x.
func VerticalCrossPoint(a, b Vec2, x float64) Vec2 {
	dx := b.X() - a.X()
	if math.Abs(dx) < Epsilon {
		return Vec2{x, a.Y()}
	}
	t := (x - a.X()) / dx
	return Vec2{x, a.Y() + (b.Y()-a.Y())*t}
}
