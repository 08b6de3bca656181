package mesh

import (
	"math"
	"sort"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// triangulate decomposes a polygon with holes into CCW triangles. Holes are
// bridged into the outer ring first, then the merged simple ring is ear
// clipped.
func triangulate(p geom.Poly) ([][3]geom.Point, error) {
	ring, err := bridgeHoles(p)
	if err != nil {
		return nil, err
	}
	return earClip(ring)
}

// bridgeHoles merges every hole into the outer ring through a zero-width
// bridge at the hole's rightmost vertex, the classic approach for turning a
// polygon-with-holes into one convertible ring. Holes are processed right to
// left so earlier bridges cannot block later ones.
func bridgeHoles(p geom.Poly) (geom.Ring, error) {
	outer := p.Outer.Clone()
	if len(outer) < 3 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "cap outline has %d vertices", len(outer))
	}
	holes := make([]geom.Ring, len(p.Holes))
	copy(holes, p.Holes)
	sort.Slice(holes, func(i, j int) bool {
		return rightmost(holes[i]).X > rightmost(holes[j]).X
	})

	for _, h := range holes {
		if len(h) < 3 {
			return nil, errors.New(errors.ErrCodeMeshAssembly, "cap hole has %d vertices", len(h))
		}
		outer = spliceHole(outer, h)
		if outer == nil {
			return nil, errors.New(errors.ErrCodeMeshAssembly, "no visible bridge vertex for cap hole")
		}
	}
	return outer, nil
}

func rightmost(r geom.Ring) geom.Point {
	best := r[0]
	for _, p := range r[1:] {
		if p.X > best.X {
			best = p
		}
	}
	return best
}

// spliceHole connects the hole to the ring at a mutually visible vertex pair
// and returns the merged ring, or nil when no visible pair exists.
func spliceHole(outer, hole geom.Ring) geom.Ring {
	hi := 0
	for i, p := range hole {
		if p.X > hole[hi].X {
			hi = i
		}
	}
	hp := hole[hi]

	// Candidate outer vertices ordered by distance from the hole vertex;
	// take the first one the bridge segment can reach unobstructed.
	order := make([]int, len(outer))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return outer[order[a]].Dist(hp) < outer[order[b]].Dist(hp)
	})

	for _, oi := range order {
		if !visible(hp, outer[oi], outer, hole) {
			continue
		}
		// outer[0..oi] + hole[hi..] wrapped + back to outer[oi].
		merged := make(geom.Ring, 0, len(outer)+len(hole)+2)
		merged = append(merged, outer[:oi+1]...)
		for k := 0; k <= len(hole); k++ {
			merged = append(merged, hole[(hi+k)%len(hole)])
		}
		merged = append(merged, outer[oi])
		merged = append(merged, outer[oi+1:]...)
		return merged
	}
	return nil
}

// visible reports whether segment a-b crosses no edge of either ring.
func visible(a, b geom.Point, outer, hole geom.Ring) bool {
	for _, r := range []geom.Ring{outer, hole} {
		n := len(r)
		for i := 0; i < n; i++ {
			p, q := r[i], r[(i+1)%n]
			if p.Near(a) || p.Near(b) || q.Near(a) || q.Near(b) {
				continue
			}
			if segmentsCross3(a, b, p, q) {
				return false
			}
		}
	}
	return true
}

func segmentsCross3(a, b, c, d geom.Point) bool {
	ab := b.Sub(a)
	cd := d.Sub(c)
	den := ab.Cross(cd)
	if math.Abs(den) < geom.Eps {
		return false
	}
	t := c.Sub(a).Cross(cd) / den
	u := c.Sub(a).Cross(ab) / den
	return t > geom.Eps && t < 1-geom.Eps && u > geom.Eps && u < 1-geom.Eps
}

// earClip triangulates a CCW ring. Bridge vertices may repeat; once the region
// between a duplicate pair has been clipped away the leftover duplicates and
// spikes are filtered out, and a ring with no ear at all is split along an
// interior diagonal and the halves clipped independently.
func earClip(ring geom.Ring) ([][3]geom.Point, error) {
	pts := filterPoints(append(geom.Ring(nil), ring...))
	var tris [][3]geom.Point

	for len(pts) > 3 {
		i, ok := findEar(pts)
		if !ok {
			rest, err := splitAndClip(pts)
			if err != nil {
				return nil, err
			}
			tris = append(tris, rest...)
			pts = nil
			break
		}
		tris = appendTri(tris, pts[prev(i, len(pts))], pts[i], pts[next(i, len(pts))])
		pts = filterPoints(removeAt(pts, i))
	}
	if len(pts) == 3 {
		tris = appendTri(tris, pts[0], pts[1], pts[2])
	}
	if len(tris) == 0 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "cap triangulation is empty")
	}
	return tris, nil
}

// findEar returns the index of a clippable convex corner. Only reflex vertices
// can block an ear: in a simple ring any vertex inside a candidate triangle
// implies a reflex vertex inside it, and skipping convex ones keeps bridge
// duplicates sitting on a triangle edge from vetoing every candidate.
func findEar(pts geom.Ring) (int, bool) {
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b, c := pts[prev(i, n)], pts[i], pts[next(i, n)]
		if b.Sub(a).Cross(c.Sub(b)) <= geom.Eps {
			continue // reflex or flat corner
		}
		if earBlocked(pts, i, a, b, c) {
			continue
		}
		return i, true
	}
	return 0, false
}

func earBlocked(pts geom.Ring, i int, a, b, c geom.Point) bool {
	n := len(pts)
	for j := 0; j < n; j++ {
		if j == prev(i, n) || j == i || j == next(i, n) {
			continue
		}
		p := pts[j]
		if p.Near(a) || p.Near(b) || p.Near(c) {
			continue // bridge duplicates sit on the triangle corners
		}
		if p.Sub(pts[prev(j, n)]).Cross(pts[next(j, n)].Sub(p)) > geom.Eps {
			continue // convex vertex, cannot be the innermost blocker
		}
		if pointInTri(p, a, b, c) {
			return true
		}
	}
	return false
}

// filterPoints drops exact duplicate neighbours and zero-width spikes, the
// residue a consumed bridge leaves behind.
func filterPoints(pts geom.Ring) geom.Ring {
	for changed := true; changed && len(pts) > 3; {
		changed = false
		for i := 0; i < len(pts) && len(pts) > 3; i++ {
			a := pts[prev(i, len(pts))]
			b := pts[i]
			c := pts[next(i, len(pts))]
			spike := math.Abs(b.Sub(a).Cross(c.Sub(b))) < geom.Eps &&
				c.Sub(b).Dot(b.Sub(a)) < 0
			if b.Near(c) || spike {
				pts = removeAt(pts, i)
				changed = true
				i--
			}
		}
	}
	return pts
}

// splitAndClip cuts an earless ring in two along an interior diagonal and
// triangulates the halves. Splitting a ring along a diagonal always yields
// strictly smaller rings, so the mutual recursion with earClip terminates.
func splitAndClip(pts geom.Ring) ([][3]geom.Point, error) {
	n := len(pts)
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // adjacent across the wrap
			}
			if !diagonalInside(pts, i, j) {
				continue
			}
			first, err := earClip(append(geom.Ring(nil), pts[i:j+1]...))
			if err != nil {
				continue
			}
			second, err := earClip(append(append(geom.Ring(nil), pts[j:]...), pts[:i+1]...))
			if err != nil {
				continue
			}
			return append(first, second...), nil
		}
	}
	return nil, errors.New(errors.ErrCodeMeshAssembly, "ear clipping stalled with %d vertices", n)
}

// diagonalInside reports whether the segment between vertices i and j stays in
// the ring interior and crosses no ring edge.
func diagonalInside(pts geom.Ring, i, j int) bool {
	a, b := pts[i], pts[j]
	if a.Near(b) {
		return false
	}
	n := len(pts)
	for k := 0; k < n; k++ {
		p, q := pts[k], pts[(k+1)%n]
		if p.Near(a) || p.Near(b) || q.Near(a) || q.Near(b) {
			continue
		}
		if segmentsCross3(a, b, p, q) {
			return false
		}
	}
	mid := geom.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	return pts.Contains(mid)
}

func prev(i, n int) int { return (i - 1 + n) % n }
func next(i, n int) int { return (i + 1) % n }

func removeAt(r geom.Ring, i int) geom.Ring {
	return append(r[:i], r[i+1:]...)
}

// appendTri keeps only facets with real area.
func appendTri(tris [][3]geom.Point, a, b, c geom.Point) [][3]geom.Point {
	if math.Abs(b.Sub(a).Cross(c.Sub(a)))/2 < geom.Eps {
		return tris
	}
	return append(tris, [3]geom.Point{a, b, c})
}

func pointInTri(p, a, b, c geom.Point) bool {
	d1 := b.Sub(a).Cross(p.Sub(a))
	d2 := c.Sub(b).Cross(p.Sub(b))
	d3 := a.Sub(c).Cross(p.Sub(c))
	return d1 >= -geom.Eps && d2 >= -geom.Eps && d3 >= -geom.Eps
}
