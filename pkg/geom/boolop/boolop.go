// Package boolop composes polygon sets with union, intersection and
// difference.
//
// The composer works on boundary segments: every edge of one operand is split
// at its crossings with the other, each piece is classified by whether its
// midpoint lies inside the other operand, and the surviving pieces are chained
// back into closed loops. Containment of the result is re-derived with
// geom.Nest, so nesting depth never has to be tracked through the operation.
package boolop

import (
	"math"
	"sort"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// Union returns the region covered by a or b.
func Union(a, b geom.Set) (geom.Set, error) {
	r := rule{material: false, inside: false}
	return compose(a, b, r, r, false)
}

// Intersection returns the region covered by both a and b.
func Intersection(a, b geom.Set) (geom.Set, error) {
	r := rule{material: true, inside: true}
	return compose(a, b, r, r, false)
}

// Difference returns the region covered by a but not b. Kept boundary pieces
// of b are reversed so material stays on the left of travel.
func Difference(a, b geom.Set) (geom.Set, error) {
	return compose(a, b,
		rule{material: true, inside: false},
		rule{material: false, inside: true}, true)
}

type segment struct {
	a, b geom.Point
}

func (s segment) reversed() segment { return segment{s.b, s.a} }

// rule classifies a boundary piece against the opposite operand. The probe
// point sits just off the piece's midpoint: on the material side (left of
// travel) or the outer side. The piece is kept when the probe's containment
// in the other operand matches inside. Probing a displaced point instead of
// the midpoint itself keeps shared collinear boundaries well-defined.
type rule struct {
	material bool
	inside   bool
}

// sideEps displaces classification probes off the boundary. Well above float
// noise at millimeter coordinates, well below any printable feature.
const sideEps = 1e-6

func (r rule) keep(s segment, other geom.Set) bool {
	d := s.b.Sub(s.a).Unit()
	n := geom.Point{X: d.Y, Y: -d.X} // right of travel
	if r.material {
		n = n.Scale(-sideEps)
	} else {
		n = n.Scale(sideEps)
	}
	probe := geom.Point{X: (s.a.X + s.b.X) / 2, Y: (s.a.Y + s.b.Y) / 2}.Add(n)
	return other.Contains(probe) == r.inside
}

// compose splits both boundaries against each other, keeps the pieces the
// rules select, and chains them into the result set. reverseB flips kept b
// pieces (difference treats b's boundary as a hole boundary of the result).
func compose(a, b geom.Set, ruleA, ruleB rule, reverseB bool) (geom.Set, error) {
	if !a.Validate() || !b.Validate() {
		return nil, errors.New(errors.ErrCodeInvalidPolygon, "boolean operand is not a valid polygon set")
	}
	if a.Empty() && b.Empty() {
		return nil, nil
	}

	ea := edges(a)
	eb := edges(b)

	var kept []segment
	for _, s := range split(ea, eb) {
		if ruleA.keep(s, b) {
			kept = append(kept, s)
		}
	}
	for _, s := range split(eb, ea) {
		if ruleB.keep(s, a) {
			if reverseB {
				s = s.reversed()
			}
			kept = append(kept, s)
		}
	}

	kept = cancelOpposites(kept)
	return geom.Nest(chain(kept)), nil
}

// edges flattens a set's rings into directed segments; material on the left.
func edges(s geom.Set) []segment {
	var out []segment
	for _, r := range s.Rings() {
		n := len(r)
		for i := 0; i < n; i++ {
			out = append(out, segment{r[i], r[(i+1)%n]})
		}
	}
	return out
}

// split cuts every segment of src at its crossings with the segments of
// against, returning the pieces in traversal order.
func split(src, against []segment) []segment {
	var out []segment
	for _, s := range src {
		d := s.b.Sub(s.a)
		var ts []float64
		for _, o := range against {
			if t, ok := crossParam(s, o); ok {
				ts = append(ts, t)
			}
		}
		if len(ts) == 0 {
			out = append(out, s)
			continue
		}
		sort.Float64s(ts)
		prev := 0.0
		for _, t := range ts {
			if t-prev > geom.Eps {
				out = append(out, segment{s.a.Add(d.Scale(prev)), s.a.Add(d.Scale(t))})
			}
			prev = t
		}
		if 1-prev > geom.Eps {
			out = append(out, segment{s.a.Add(d.Scale(prev)), s.b})
		}
	}
	return out
}

// crossParam returns the parametric position along s where segment o crosses
// its interior.
func crossParam(s, o segment) (float64, bool) {
	d1 := s.b.Sub(s.a)
	d2 := o.b.Sub(o.a)
	den := d1.Cross(d2)
	if math.Abs(den) < geom.Eps {
		return 0, false
	}
	t := o.a.Sub(s.a).Cross(d2) / den
	u := o.a.Sub(s.a).Cross(d1) / den
	if t <= geom.Eps || t >= 1-geom.Eps || u < -geom.Eps || u > 1+geom.Eps {
		return 0, false
	}
	return t, true
}

// cancelOpposites drops segment pairs that traverse the same span in opposite
// directions, and collapses exact duplicates to one. Shared collinear
// boundaries between the operands produce exactly these pairs, and keeping
// them would pinch the chained loops.
func cancelOpposites(segs []segment) []segment {
	type key struct{ a, b geom.Point }
	count := make(map[key]int, len(segs))
	for _, s := range segs {
		count[key{snap(s.a), snap(s.b)}]++
	}
	var out []segment
	for _, s := range segs {
		k := key{snap(s.a), snap(s.b)}
		rk := key{k.b, k.a}
		if count[rk] > 0 {
			// Opposite traversal present: cancel one of each.
			count[k]--
			count[rk]--
			continue
		}
		if count[k] <= 0 {
			continue // duplicate already emitted
		}
		count[k] = 0
		out = append(out, s)
	}
	return out
}

// chain links kept segments end to end into closed rings. At junctions with
// several continuations it takes the sharpest left turn, which keeps interior
// material on the left and separates loops that only touch at a point.
func chain(segs []segment) []geom.Ring {
	bySrc := make(map[geom.Point][]int, len(segs))
	for i, s := range segs {
		k := snap(s.a)
		bySrc[k] = append(bySrc[k], i)
	}
	used := make([]bool, len(segs))

	var rings []geom.Ring
	for i := range segs {
		if used[i] {
			continue
		}
		var ring geom.Ring
		cur := i
		start := snap(segs[i].a)
		for {
			used[cur] = true
			ring = append(ring, segs[cur].a)
			at := snap(segs[cur].b)
			if at == start {
				break
			}
			next := pickNext(segs, bySrc[at], used, segs[cur])
			if next < 0 {
				ring = nil // open chain, numerical orphan
				break
			}
			cur = next
		}
		if ring = geom.Dissolve(ring, geom.Eps); len(ring) >= 3 {
			rings = append(rings, ring)
		}
	}
	return rings
}

// pickNext selects the unused continuation making the sharpest left turn
// relative to the incoming segment.
func pickNext(segs []segment, candidates []int, used []bool, in segment) int {
	best := -1
	bestAng := math.Inf(1)
	din := in.b.Sub(in.a).Unit()
	for _, c := range candidates {
		if used[c] {
			continue
		}
		dout := segs[c].b.Sub(segs[c].a).Unit()
		// Clockwise angle from the incoming direction: smallest wins, which
		// is the tightest left turn.
		ang := math.Atan2(din.Cross(dout), din.Dot(dout))
		ang = math.Pi - ang // left turn of pi maps to 0
		if ang < bestAng {
			bestAng = ang
			best = c
		}
	}
	return best
}

// snap quantizes a point so split endpoints computed from different edge
// pairs hash identically.
func snap(p geom.Point) geom.Point {
	const q = 1e6
	return geom.Point{X: math.Round(p.X*q) / q, Y: math.Round(p.Y*q) / q}
}
