package geom

import "math"

// Dissolve removes collinear points from a ring. A point is dropped when the
// triangle it forms with its neighbours is flatter than Eps, or when it sits
// closer than minSeg to the previous point.
func Dissolve(r Ring, minSeg float64) Ring {
	out := r.Clone()
	for changed := true; changed && len(out) > 3; {
		changed = false
		for i := 0; i < len(out) && len(out) > 3; {
			a := out[(i+len(out)-1)%len(out)]
			b := out[i]
			c := out[(i+1)%len(out)]
			ab := b.Sub(a)
			ac := c.Sub(a)
			if math.Abs(ab.Cross(ac)) < Eps || ab.Norm() < minSeg {
				out = append(out[:i], out[i+1:]...)
				changed = true
			} else {
				i++
			}
		}
	}
	return out
}

// Simplify reduces a ring with the Douglas-Peucker algorithm under the given
// tolerance, then dissolves any remaining collinear runs. Closed rings are
// split at their two mutually-farthest vertices so the endpoints are stable
// anchors. Returns nil if the ring degenerates below 3 vertices.
func Simplify(r Ring, tol float64) Ring {
	if len(r) < 4 || tol <= 0 {
		return Dissolve(r, Eps)
	}

	// Anchor the split at the two extreme vertices.
	i0, i1 := 0, 0
	best := -1.0
	for i := range r {
		for j := i + 1; j < len(r); j++ {
			if d := r[i].Dist(r[j]); d > best {
				best, i0, i1 = d, i, j
			}
		}
	}
	rot := append(r[i0:].Clone(), r[:i0]...)
	split := i1 - i0
	if split < 0 {
		split += len(r)
	}

	half1 := douglasPeucker(rot[:split+1], tol)
	back := append(rot[split:].Clone(), rot[0]) // wrap the closing edge
	half2 := douglasPeucker(back, tol)
	out := append(half1[:len(half1)-1], half2[:len(half2)-1]...)

	out = Dissolve(out, Eps)
	if len(out) < 3 {
		return nil
	}
	return out
}

// douglasPeucker simplifies an open polyline, keeping both endpoints.
func douglasPeucker(pts Ring, tol float64) Ring {
	if len(pts) < 3 {
		return pts.Clone()
	}
	a, b := pts[0], pts[len(pts)-1]
	maxD, maxI := -1.0, 0
	for i := 1; i < len(pts)-1; i++ {
		if d := pointSegDist(pts[i], a, b); d > maxD {
			maxD, maxI = d, i
		}
	}
	if maxD <= tol {
		return Ring{a, b}
	}
	left := douglasPeucker(pts[:maxI+1], tol)
	right := douglasPeucker(pts[maxI:], tol)
	return append(left[:len(left)-1], right...)
}

// pointSegDist returns the distance from p to segment (a,b).
func pointSegDist(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Eps {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(a.Add(ab.Scale(t)))
}
