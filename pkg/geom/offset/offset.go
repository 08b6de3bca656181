// Package offset grows and shrinks polygon sets by a signed distance.
//
// Every ring is offset perpendicular to its own winding: with outers CCW and
// holes CW, material lies to the left of travel, so a positive delta moves
// each boundary to the right of travel: outers grow outward and holes shrink
// inward, exactly the buffering behaviour a cutting wall needs. Containment is
// re-derived after offsetting, so a ring that erodes away simply disappears.
package offset

import (
	"math"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// Join selects the corner style for gaps opened by offsetting.
type Join int

const (
	// JoinRound fills corner gaps with arc segments. The default: cutting and
	// stamp walls favour smooth continuous surfaces.
	JoinRound Join = iota

	// JoinMiter extends the offset edges to their intersection, falling back
	// to a straight bevel past the miter limit.
	JoinMiter
)

// Options configures corner joins.
type Options struct {
	Join Join

	// MiterLimit bounds miter spike length as a multiple of |delta|.
	// Zero selects 2.0. Values below 1 are rejected.
	MiterLimit float64

	// ArcStep is the radian step for round-join arcs. Zero selects 2π/64.
	ArcStep float64
}

const (
	defaultMiterLimit = 2.0
	defaultArcStep    = 2 * math.Pi / 64
)

// Offset buffers every boundary of the set by delta (millimeters in pipeline
// space). Rings that would self-intersect under erosion are split and the
// collapsed parts dropped; a fully collapsed set returns empty, never an
// error. Non-simple input fails with INVALID_POLYGON; malformed options fail
// with OFFSET_CONFIG.
func Offset(s geom.Set, delta float64, opts Options) (geom.Set, error) {
	if opts.MiterLimit == 0 {
		opts.MiterLimit = defaultMiterLimit
	}
	if opts.ArcStep == 0 {
		opts.ArcStep = defaultArcStep
	}
	if opts.MiterLimit < 1 {
		return nil, errors.New(errors.ErrCodeOffsetConfig, "miter limit %.2f below 1", opts.MiterLimit)
	}
	if opts.ArcStep <= 0 || opts.ArcStep > math.Pi/2 {
		return nil, errors.New(errors.ErrCodeOffsetConfig, "arc step %.3f out of range", opts.ArcStep)
	}
	if !s.Validate() {
		return nil, errors.New(errors.ErrCodeInvalidPolygon, "offset input is not a valid polygon set")
	}
	if delta == 0 {
		return s.Clone(), nil
	}

	var out []geom.Ring
	for _, ring := range s.Rings() {
		raw := offsetRing(ring, delta, opts)
		if len(raw) < 3 {
			continue
		}
		out = append(out, resolveLoops(raw, ring.IsCCW())...)
	}
	return geom.Nest(out), nil
}

// offsetRing builds the raw offset polyline for one ring, inserting joins at
// corners. The result may self-intersect under erosion; resolveLoops cleans
// that up.
func offsetRing(r geom.Ring, delta float64, opts Options) geom.Ring {
	n := len(r)
	type seg struct {
		a, b   geom.Point
		dir    geom.Point
		corner geom.Point // original ring vertex at the segment end
	}
	segs := make([]seg, 0, n)
	for i := 0; i < n; i++ {
		p, q := r[i], r[(i+1)%n]
		d := q.Sub(p)
		if d.Norm() < geom.Eps {
			continue
		}
		d = d.Unit()
		// Right-of-travel normal; material is on the left.
		nrm := geom.Point{X: d.Y, Y: -d.X}.Scale(delta)
		segs = append(segs, seg{a: p.Add(nrm), b: q.Add(nrm), dir: d, corner: q})
	}
	m := len(segs)
	if m < 3 {
		return nil
	}

	joins := make([][]geom.Point, m) // corner inserts after segs[i]
	for i := 0; i < m; i++ {
		j := (i + 1) % m
		cross := segs[i].dir.Cross(segs[j].dir)
		switch {
		case math.Abs(cross) < geom.Eps:
			// Straight-through corner, nothing to join.
		case cross*delta > 0:
			// The offset opens a gap around the corner.
			q := segs[i].corner
			joins[i] = joinCorner(q, segs[i].b.Sub(q), segs[j].a.Sub(q), segs[i].dir, segs[j].dir, delta, opts)
		default:
			// The offset edges overlap; meet at their intersection.
			if at, ok := lineIntersect(segs[i].a, segs[i].dir, segs[j].a, segs[j].dir); ok {
				segs[i].b = at
				segs[j].a = at
			}
		}
	}

	var out geom.Ring
	for i := 0; i < m; i++ {
		out = append(out, segs[i].a, segs[i].b)
		out = append(out, joins[i]...)
	}
	return geom.Dissolve(out, geom.Eps)
}

// joinCorner emits the join vertices between offset vectors v0 and v1 around
// corner q. For round joins the arc sweeps the turn angle; for miter joins a
// single spike point is emitted unless it exceeds the miter limit, in which
// case the gap is left as a bevel.
func joinCorner(q, v0, v1 geom.Point, d1, d2 geom.Point, delta float64, opts Options) []geom.Point {
	if opts.Join == JoinMiter {
		at, ok := lineIntersect(q.Add(v0), d1, q.Add(v1), d2)
		if ok && at.Dist(q) <= opts.MiterLimit*math.Abs(delta) {
			return []geom.Point{at}
		}
		return nil // bevel
	}

	a0 := math.Atan2(v0.Y, v0.X)
	a1 := math.Atan2(v1.Y, v1.X)
	sweep := a1 - a0
	for sweep > math.Pi {
		sweep -= 2 * math.Pi
	}
	for sweep < -math.Pi {
		sweep += 2 * math.Pi
	}
	steps := int(math.Ceil(math.Abs(sweep) / opts.ArcStep))
	r := v0.Norm()
	pts := make([]geom.Point, 0, steps)
	for k := 1; k < steps; k++ {
		a := a0 + sweep*float64(k)/float64(steps)
		pts = append(pts, geom.Point{X: q.X + r*math.Cos(a), Y: q.Y + r*math.Sin(a)})
	}
	return pts
}

// lineIntersect intersects the infinite lines (a + t·da) and (b + u·db).
func lineIntersect(a, da, b, db geom.Point) (geom.Point, bool) {
	den := da.Cross(db)
	if math.Abs(den) < geom.Eps {
		return geom.Point{}, false
	}
	t := b.Sub(a).Cross(db) / den
	return a.Add(da.Scale(t)), true
}

// resolveLoops splits a possibly self-intersecting ring into its simple
// sub-loops and keeps only the ones that preserve the source winding with
// non-trivial area. An eroded ring whose winding flipped entirely vanishes
// here, which is the erosion-collapse-to-empty rule.
func resolveLoops(r geom.Ring, wantCCW bool) []geom.Ring {
	split := splitAtIntersections(r)
	var keep []geom.Ring
	for _, loop := range split {
		loop = geom.Dissolve(loop, geom.Eps)
		if len(loop) < 3 {
			continue
		}
		if loop.IsCCW() != wantCCW {
			continue
		}
		if math.Abs(loop.Area()) < geom.Eps {
			continue
		}
		keep = append(keep, loop)
	}
	return keep
}

// splitAtIntersections decomposes a ring at its self-intersection points.
// Intersections are inserted into the traversal order; whenever the walk
// returns to a point already on the path, the enclosed sub-loop is emitted.
func splitAtIntersections(r geom.Ring) []geom.Ring {
	n := len(r)
	type cut struct {
		t  float64 // position along the edge
		at geom.Point
	}
	cuts := make([][]cut, n)
	found := false
	for i := 0; i < n; i++ {
		a, b := r[i], r[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i || (j+1)%n == i || j == (i+1)%n {
				continue
			}
			c, d := r[j], r[(j+1)%n]
			at, t, u, ok := segIntersect(a, b, c, d)
			if !ok {
				continue
			}
			cuts[i] = append(cuts[i], cut{t, at})
			cuts[j] = append(cuts[j], cut{u, at})
			found = true
		}
	}
	if !found {
		return []geom.Ring{r}
	}

	// Flattened traversal with intersection points spliced in.
	var path geom.Ring
	for i := 0; i < n; i++ {
		path = append(path, r[i])
		cs := cuts[i]
		for k := 1; k < len(cs); k++ { // insertion sort by t, lists are tiny
			for m := k; m > 0 && cs[m].t < cs[m-1].t; m-- {
				cs[m], cs[m-1] = cs[m-1], cs[m]
			}
		}
		for _, c := range cs {
			path = append(path, c.at)
		}
	}

	var loops []geom.Ring
	var stack geom.Ring
	seen := make(map[geom.Point]int)
	for _, p := range path {
		key := snap(p)
		if at, ok := seen[key]; ok {
			loop := stack[at:].Clone()
			stack = stack[:at]
			for _, q := range loop {
				delete(seen, snap(q))
			}
			if len(loop) >= 3 {
				loops = append(loops, loop)
			}
			// The junction point stays on the path for the remaining walk.
		}
		seen[key] = len(stack)
		stack = append(stack, p)
	}
	if len(stack) >= 3 {
		loops = append(loops, stack)
	}
	return loops
}

// snap quantizes a point so that numerically-near intersection copies hash to
// the same key.
func snap(p geom.Point) geom.Point {
	const q = 1e6
	return geom.Point{X: math.Round(p.X*q) / q, Y: math.Round(p.Y*q) / q}
}

// segIntersect intersects segments (a,b) and (c,d) strictly in their
// interiors, returning the point and both parametric positions.
func segIntersect(a, b, c, d geom.Point) (geom.Point, float64, float64, bool) {
	ab := b.Sub(a)
	cd := d.Sub(c)
	den := ab.Cross(cd)
	if math.Abs(den) < geom.Eps {
		return geom.Point{}, 0, 0, false
	}
	t := c.Sub(a).Cross(cd) / den
	u := c.Sub(a).Cross(ab) / den
	if t <= geom.Eps || t >= 1-geom.Eps || u <= geom.Eps || u >= 1-geom.Eps {
		return geom.Point{}, 0, 0, false
	}
	return a.Add(ab.Scale(t)), t, u, true
}
