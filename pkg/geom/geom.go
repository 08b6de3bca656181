// Package geom provides the planar geometry model for cookieforge.
//
// A [Ring] is a closed, non-self-intersecting polygon given as an ordered point
// sequence with an implicit edge from the last point back to the first. A [Poly]
// is one outer ring (counter-clockwise) plus zero or more hole rings (clockwise),
// each hole strictly contained in the outer. A [Set] is a collection of disjoint
// Polys sharing one coordinate scale.
//
// The winding convention (outer CCW, holes CW) is load-bearing: offsetting and
// boolean composition derive offset direction and area sign from it, so every
// operation in this package and its subpackages preserves it. Use [Nest] to
// re-derive containment and winding from a bag of raw rings.
//
// All transformations return new values; nothing mutates a Ring in place.
package geom

import "math"

// Eps merges points and guards area/denominator comparisons against rounding
// error. Coordinates are millimeters downstream, so anything below a
// nanometer-ish threshold is treated as coincident.
const Eps = 1e-7

// Point holds a 2D coordinate value.
type Point struct {
	X, Y float64
}

// Add returns a + b.
func (a Point) Add(b Point) Point { return Point{a.X + b.X, a.Y + b.Y} }

// Sub returns a - b.
func (a Point) Sub(b Point) Point { return Point{a.X - b.X, a.Y - b.Y} }

// Scale returns a scaled by s.
func (a Point) Scale(s float64) Point { return Point{a.X * s, a.Y * s} }

// Dot computes the dot product of two vectors.
func (a Point) Dot(b Point) float64 { return a.X*b.X + a.Y*b.Y }

// Cross computes the 2D cross product (z component of a × b).
func (a Point) Cross(b Point) float64 { return a.X*b.Y - a.Y*b.X }

// Norm returns the Euclidean length of the vector.
func (a Point) Norm() float64 { return math.Hypot(a.X, a.Y) }

// Unit returns the unit vector in the direction of a, or the zero point if a
// is shorter than Eps.
func (a Point) Unit() Point {
	n := a.Norm()
	if n < Eps {
		return Point{}
	}
	return Point{a.X / n, a.Y / n}
}

// Dist returns the distance between two points.
func (a Point) Dist(b Point) float64 { return a.Sub(b).Norm() }

// Near reports whether two points are within Eps of each other.
func (a Point) Near(b Point) bool {
	return math.Abs(a.X-b.X) < Eps && math.Abs(a.Y-b.Y) < Eps
}

// Ring is a closed polygon boundary. The edge from the last point to the first
// is implicit; the closing point is never duplicated.
type Ring []Point

// Clone returns an independent copy of the ring.
func (r Ring) Clone() Ring {
	out := make(Ring, len(r))
	copy(out, r)
	return out
}

// Area returns the signed area of the ring. Positive for counter-clockwise
// winding, negative for clockwise.
func (r Ring) Area() float64 {
	if len(r) < 3 {
		return 0
	}
	sum := 0.0
	for i, p := range r {
		q := r[(i+1)%len(r)]
		sum += p.Cross(q)
	}
	return sum / 2
}

// IsCCW reports whether the ring winds counter-clockwise.
func (r Ring) IsCCW() bool { return r.Area() > 0 }

// Reversed returns a copy of the ring with opposite winding.
func (r Ring) Reversed() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// BBox returns the ring's axis-aligned bounding box.
func (r Ring) BBox() (min, max Point) {
	for i, p := range r {
		if i == 0 {
			min, max = p, p
			continue
		}
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Contains reports whether pt lies strictly inside the ring, using the even-odd
// crossing rule. Points on the boundary are not inside.
func (r Ring) Contains(pt Point) bool {
	inside := false
	for i, a := range r {
		b := r[(i+1)%len(r)]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// IsSimple reports whether no two non-adjacent edges of the ring intersect.
// Quadratic scan; rings here are bounded by the simplification pass.
func (r Ring) IsSimple() bool {
	n := len(r)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges (they share a vertex by construction).
			if j == i || (j+1)%n == i || j == (i+1)%n {
				continue
			}
			c, d := r[j], r[(j+1)%n]
			if segmentsCross(a, b, c, d) {
				return false
			}
		}
	}
	return true
}

// segmentsCross reports whether segments (a,b) and (c,d) properly intersect.
func segmentsCross(a, b, c, d Point) bool {
	d1 := b.Sub(a).Cross(c.Sub(a))
	d2 := b.Sub(a).Cross(d.Sub(a))
	d3 := d.Sub(c).Cross(a.Sub(c))
	d4 := d.Sub(c).Cross(b.Sub(c))
	return ((d1 > Eps && d2 < -Eps) || (d1 < -Eps && d2 > Eps)) &&
		((d3 > Eps && d4 < -Eps) || (d3 < -Eps && d4 > Eps))
}

// Poly is a polygon with holes: one outer ring (CCW) plus zero or more hole
// rings (CW), each strictly inside the outer.
type Poly struct {
	Outer Ring
	Holes []Ring
}

// Clone returns an independent copy of the polygon.
func (p Poly) Clone() Poly {
	out := Poly{Outer: p.Outer.Clone()}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, h.Clone())
	}
	return out
}

// Area returns the enclosed area: outer area minus hole areas.
func (p Poly) Area() float64 {
	a := math.Abs(p.Outer.Area())
	for _, h := range p.Holes {
		a -= math.Abs(h.Area())
	}
	return a
}

// Rings returns all rings of the polygon, outer first.
func (p Poly) Rings() []Ring {
	rings := make([]Ring, 0, 1+len(p.Holes))
	rings = append(rings, p.Outer)
	rings = append(rings, p.Holes...)
	return rings
}

// Contains reports whether pt is inside the polygon region (inside the outer
// and outside every hole).
func (p Poly) Contains(pt Point) bool {
	if !p.Outer.Contains(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.Contains(pt) {
			return false
		}
	}
	return true
}

// Set is a collection of disjoint polygons-with-holes.
type Set []Poly

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, 0, len(s))
	for _, p := range s {
		out = append(out, p.Clone())
	}
	return out
}

// Empty reports whether the set contains no polygons.
func (s Set) Empty() bool { return len(s) == 0 }

// Rings returns every ring in the set.
func (s Set) Rings() []Ring {
	var rings []Ring
	for _, p := range s {
		rings = append(rings, p.Rings()...)
	}
	return rings
}

// Area returns the total enclosed area of the set.
func (s Set) Area() float64 {
	sum := 0.0
	for _, p := range s {
		sum += p.Area()
	}
	return sum
}

// BBox returns the bounding box of the whole set. Empty sets return zero
// points.
func (s Set) BBox() (min, max Point) {
	first := true
	for _, p := range s {
		pmin, pmax := p.Outer.BBox()
		if first {
			min, max = pmin, pmax
			first = false
			continue
		}
		min.X = math.Min(min.X, pmin.X)
		min.Y = math.Min(min.Y, pmin.Y)
		max.X = math.Max(max.X, pmax.X)
		max.Y = math.Max(max.Y, pmax.Y)
	}
	return min, max
}

// Contains reports whether pt is inside any polygon of the set, using the
// even-odd rule across all rings.
func (s Set) Contains(pt Point) bool {
	crossings := 0
	for _, r := range s.Rings() {
		if r.Contains(pt) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// Transform applies fn to every point of the set and re-derives winding, since
// mirroring transforms flip ring orientation.
func (s Set) Transform(fn func(Point) Point) Set {
	var rings []Ring
	for _, r := range s.Rings() {
		out := make(Ring, len(r))
		for i, p := range r {
			out[i] = fn(p)
		}
		rings = append(rings, out)
	}
	return Nest(rings)
}

// Validate checks that every ring is simple and properly wound. It returns
// false for self-intersecting rings or holes wound like outers.
func (s Set) Validate() bool {
	for _, p := range s {
		if len(p.Outer) < 3 || !p.Outer.IsCCW() || !p.Outer.IsSimple() {
			return false
		}
		for _, h := range p.Holes {
			if len(h) < 3 || h.IsCCW() || !h.IsSimple() {
				return false
			}
		}
	}
	return true
}
