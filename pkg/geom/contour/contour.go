// Package contour extracts closed boundary polygons from a two-valued Bitmap.
//
// Boundaries are traced along pixel edges: every edge between a foreground and
// a background pixel becomes a directed segment with the foreground on its
// left, and the segments are chained into closed loops. Outer boundaries and
// hole boundaries fall out of the same walk; nesting is re-derived afterwards
// by even-odd containment, so holes nested more than one level deep reparent
// to their nearest enclosing outer.
package contour

import (
	"math"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
	"github.com/doughlab/cookieforge/pkg/raster"
)

// Options controls tracing and simplification.
type Options struct {
	// Tolerance is the Douglas-Peucker simplification tolerance in pixels.
	// Zero selects the default of 0.4 px; collinear points are always removed.
	Tolerance float64

	// MinArea drops traced rings smaller than this many square pixels.
	// Zero keeps everything bigger than a point.
	MinArea float64
}

// DefaultTolerance keeps simplification loss under half a pixel.
const DefaultTolerance = 0.4

// Extract traces all foreground boundaries of the bitmap and returns them as
// nested polygon sets with normalized winding.
//
// An all-background (or all-foreground, borderless) bitmap yields
// EMPTY_GEOMETRY. A traced loop with fewer than 3 distinct vertices yields
// DEGENERATE_CONTOUR; grid tracing cannot produce one, so hitting it means the
// input bitmap violated the two-valued contract.
func Extract(bm *raster.Bitmap, opts Options) (geom.Set, error) {
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	if n := bm.Count(); n == bm.W*bm.H {
		// A frame-filling blob has no real silhouette, only the image border.
		return nil, errors.New(errors.ErrCodeEmptyGeometry, "bitmap is entirely foreground")
	}

	loops := traceLoops(bm)
	if len(loops) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGeometry, "no closed boundary found in %dx%d bitmap", bm.W, bm.H)
	}

	var rings []geom.Ring
	for _, loop := range loops {
		if distinct(loop) < 3 {
			return nil, errors.New(errors.ErrCodeDegenerateContour, "traced loop has %d distinct vertices", distinct(loop))
		}
		r := geom.Simplify(loop, opts.Tolerance)
		if r == nil {
			continue
		}
		if opts.MinArea > 0 && math.Abs(r.Area()) < opts.MinArea {
			continue
		}
		rings = append(rings, r)
	}
	if len(rings) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGeometry, "all traced contours degenerated under tolerance %.2f", opts.Tolerance)
	}
	return geom.Nest(rings), nil
}

// vert identifies a lattice corner between pixels.
type vert struct{ x, y int }

// dir is a unit axis step. With y growing downward, left(d) points at the
// foreground side of a boundary segment.
type dir struct{ dx, dy int }

func (d dir) left() dir  { return dir{d.dy, -d.dx} }
func (d dir) right() dir { return dir{-d.dy, d.dx} }

// traceLoops builds the directed boundary-edge graph and chains it into closed
// loops. At saddle corners (two boundary edges leaving one lattice point) the
// walk prefers the left turn, which keeps the foreground 4-connected and the
// background 8-connected.
func traceLoops(bm *raster.Bitmap) []geom.Ring {
	// Directed edges keyed by start vertex and direction.
	edges := make(map[vert]map[dir]bool)
	add := func(v vert, d dir) {
		m := edges[v]
		if m == nil {
			m = make(map[dir]bool, 2)
			edges[v] = m
		}
		m[d] = true
	}

	for y := 0; y < bm.H; y++ {
		for x := 0; x < bm.W; x++ {
			if !bm.At(x, y) {
				continue
			}
			if !bm.At(x, y-1) { // top edge, walk west
				add(vert{x + 1, y}, dir{-1, 0})
			}
			if !bm.At(x, y+1) { // bottom edge, walk east
				add(vert{x, y + 1}, dir{1, 0})
			}
			if !bm.At(x-1, y) { // left edge, walk south
				add(vert{x, y}, dir{0, 1})
			}
			if !bm.At(x+1, y) { // right edge, walk north
				add(vert{x + 1, y + 1}, dir{0, -1})
			}
		}
	}

	var loops []geom.Ring
	for start, dirs := range edges {
		for d0 := range dirs {
			if !dirs[d0] {
				continue
			}
			loop := walkLoop(edges, start, d0)
			if len(loop) >= 3 {
				loops = append(loops, loop)
			}
		}
	}
	return loops
}

// walkLoop consumes edges starting at (start, d0) until the walk returns to
// its starting vertex. Collinear lattice points are dissolved on the fly, the
// same trick boundary tracers use to bound vertex counts.
func walkLoop(edges map[vert]map[dir]bool, start vert, d0 dir) geom.Ring {
	var loop geom.Ring
	push := func(v vert) {
		p := geom.Point{X: float64(v.x), Y: float64(v.y)}
		if n := len(loop); n >= 2 {
			a, b := loop[n-2], loop[n-1]
			if b.Sub(a).Cross(p.Sub(b)) == 0 {
				loop = loop[:n-1]
			}
		}
		loop = append(loop, p)
	}

	v, d := start, d0
	for {
		edges[v][d] = false
		push(v)
		v = vert{v.x + d.dx, v.y + d.dy}
		if v == start {
			break
		}
		next, ok := pickDir(edges[v], d)
		if !ok {
			// Dead end cannot happen on a valid boundary graph; bail out with
			// what we have so the caller can reject it.
			break
		}
		d = next
	}

	// The closing edge may make the first point collinear.
	if n := len(loop); n >= 3 {
		a, b, c := loop[n-2], loop[n-1], loop[0]
		if b.Sub(a).Cross(c.Sub(b)) == 0 {
			loop = loop[:n-1]
		}
	}
	return loop
}

// pickDir selects the next walk direction, preferring left turn, then
// straight, then right turn.
func pickDir(avail map[dir]bool, d dir) (dir, bool) {
	for _, cand := range []dir{d.left(), d, d.right()} {
		if avail[cand] {
			return cand, true
		}
	}
	return dir{}, false
}

// distinct counts distinct vertices in a ring.
func distinct(r geom.Ring) int {
	seen := make(map[geom.Point]bool, len(r))
	for _, p := range r {
		seen[p] = true
	}
	return len(seen)
}
