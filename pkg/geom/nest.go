package geom

import "math"

// Nest rebuilds the outer/hole hierarchy from a bag of raw rings.
//
// Containment is determined by even-odd counting: a ring contained in an even
// number of other rings is an outer, one contained in an odd number is a hole
// of its nearest (deepest) enclosing outer. Rings nested more than one level
// deep therefore reparent correctly: an island inside a hole becomes an outer
// again. Zero-area and sub-Eps rings are dropped.
//
// Winding is normalized on the result: outers CCW, holes CW.
func Nest(rings []Ring) Set {
	kept := rings[:0:0]
	for _, r := range rings {
		if len(r) >= 3 && math.Abs(r.Area()) > Eps {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	depth := make([]int, len(kept))
	parent := make([]int, len(kept))
	for i := range kept {
		parent[i] = -1
		ai := math.Abs(kept[i].Area())
		pt := interiorPoint(kept[i])
		best := -1.0
		for j := range kept {
			if j == i {
				continue
			}
			// Only strictly larger rings can contain us. The interior point of
			// a concentric outer may land inside its own hole; without the
			// area guard the two rings would report mutual containment and the
			// ancestor walk below would never terminate.
			a := math.Abs(kept[j].Area())
			if a <= ai {
				continue
			}
			if kept[j].Contains(pt) {
				depth[i]++
				// The nearest enclosing ring is the smallest one containing us.
				if best < 0 || a < best {
					best = a
					parent[i] = j
				}
			}
		}
	}

	polyOf := make(map[int]int) // ring index -> index into result
	var out Set
	for i, r := range kept {
		if depth[i]%2 != 0 {
			continue
		}
		if !r.IsCCW() {
			r = r.Reversed()
		}
		polyOf[i] = len(out)
		out = append(out, Poly{Outer: r})
	}
	for i, r := range kept {
		if depth[i]%2 == 0 {
			continue
		}
		// Walk up to the nearest even-depth ancestor; a hole directly inside a
		// hole reparents to that hole's owner.
		anc := parent[i]
		for anc >= 0 && depth[anc]%2 != 0 {
			anc = parent[anc]
		}
		if anc < 0 {
			continue
		}
		if r.IsCCW() {
			r = r.Reversed()
		}
		pi := polyOf[anc]
		out[pi].Holes = append(out[pi].Holes, r)
	}
	return out
}

// interiorPoint returns a point inside the ring. The midpoint of a diagonal at
// a convex vertex works for simple rings; fall back to the first vertex when
// the ring is degenerate.
func interiorPoint(r Ring) Point {
	n := len(r)
	if n < 3 {
		return r[0]
	}
	ccw := r.IsCCW()
	for i := 0; i < n; i++ {
		a := r[(i+n-1)%n]
		b := r[i]
		c := r[(i+1)%n]
		cross := b.Sub(a).Cross(c.Sub(b))
		if (ccw && cross <= Eps) || (!ccw && cross >= -Eps) {
			continue // reflex or flat corner
		}
		// Shrink the candidate toward the vertex until it lands inside.
		mid := Point{(a.X + c.X) / 2, (a.Y + c.Y) / 2}
		for k := 0; k < 16; k++ {
			if r.Contains(mid) {
				return mid
			}
			mid = Point{(mid.X + b.X) / 2, (mid.Y + b.Y) / 2}
		}
	}
	return r[0]
}
