package boolop

import (
	"math"
	"testing"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// rect returns a CCW rectangle from (x0, y0) to (x1, y1).
func rect(x0, y0, x1, y1 float64) geom.Ring {
	return geom.Ring{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func set(rings ...geom.Ring) geom.Set { return geom.Nest(rings) }

func wantArea(t *testing.T, s geom.Set, want float64) {
	t.Helper()
	if got := s.Area(); math.Abs(got-want) > 1e-6 {
		t.Errorf("area = %v, want %v", got, want)
	}
}

func TestUnionDisjoint(t *testing.T) {
	got, err := Union(set(rect(0, 0, 10, 10)), set(rect(20, 0, 30, 10)))
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d polys, want 2", len(got))
	}
	wantArea(t, got, 200)
}

func TestUnionOverlap(t *testing.T) {
	got, err := Union(set(rect(0, 0, 10, 10)), set(rect(5, 5, 15, 15)))
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d polys, want 1", len(got))
	}
	wantArea(t, got, 175)
}

func TestUnionSharedEdge(t *testing.T) {
	// Coincident boundaries must merge, not pinch the result apart.
	got, err := Union(set(rect(0, 0, 10, 10)), set(rect(10, 0, 20, 10)))
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d polys, want 1", len(got))
	}
	wantArea(t, got, 200)
	if n := len(got[0].Outer); n != 4 {
		t.Errorf("merged rectangle has %d vertices, want 4", n)
	}
}

func TestUnionWithEmpty(t *testing.T) {
	a := set(rect(0, 0, 10, 10))
	got, err := Union(a, nil)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	wantArea(t, got, 100)
}

func TestIntersectionOverlap(t *testing.T) {
	got, err := Intersection(set(rect(0, 0, 10, 10)), set(rect(5, 5, 15, 15)))
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	wantArea(t, got, 25)
	min, max := got.BBox()
	if min.X != 5 || min.Y != 5 || max.X != 10 || max.Y != 10 {
		t.Errorf("bbox = %v..%v, want (5,5)..(10,10)", min, max)
	}
}

func TestIntersectionDisjoint(t *testing.T) {
	got, err := Intersection(set(rect(0, 0, 10, 10)), set(rect(20, 0, 30, 10)))
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	if !got.Empty() {
		t.Errorf("disjoint intersection should be empty, got area %v", got.Area())
	}
}

func TestIntersectionContained(t *testing.T) {
	got, err := Intersection(set(rect(0, 0, 10, 10)), set(rect(2, 2, 6, 6)))
	if err != nil {
		t.Fatalf("Intersection: %v", err)
	}
	wantArea(t, got, 16)
}

func TestDifferenceCutsHole(t *testing.T) {
	got, err := Difference(set(rect(0, 0, 10, 10)), set(rect(3, 3, 7, 7)))
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if len(got) != 1 || len(got[0].Holes) != 1 {
		t.Fatalf("want one poly with one hole, got %+v", got)
	}
	wantArea(t, got, 84)
}

func TestDifferenceOverlap(t *testing.T) {
	got, err := Difference(set(rect(0, 0, 10, 10)), set(rect(5, 0, 15, 10)))
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d polys, want 1", len(got))
	}
	wantArea(t, got, 50)
}

func TestDifferenceSwallowed(t *testing.T) {
	got, err := Difference(set(rect(3, 3, 7, 7)), set(rect(0, 0, 10, 10)))
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if !got.Empty() {
		t.Errorf("subtracting a superset should yield empty, got area %v", got.Area())
	}
}

func TestDifferenceThroughHole(t *testing.T) {
	// Subtracting a donut leaves an island where its hole exposes a.
	donut := set(rect(2, 2, 8, 8), rect(4, 4, 6, 6))
	got, err := Difference(set(rect(0, 0, 10, 10)), donut)
	if err != nil {
		t.Fatalf("Difference: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d polys, want outer frame plus island", len(got))
	}
	wantArea(t, got, 100-32)
	if !got.Contains(geom.Point{X: 5, Y: 5}) {
		t.Error("island at the donut hole should remain")
	}
	if got.Contains(geom.Point{X: 3, Y: 5}) {
		t.Error("donut material should be removed")
	}
}

func TestCommutativity(t *testing.T) {
	a := set(rect(0, 0, 10, 10))
	b := set(rect(5, 5, 15, 15))
	u1, _ := Union(a, b)
	u2, _ := Union(b, a)
	if math.Abs(u1.Area()-u2.Area()) > 1e-9 {
		t.Errorf("union not commutative: %v vs %v", u1.Area(), u2.Area())
	}
	i1, _ := Intersection(a, b)
	i2, _ := Intersection(b, a)
	if math.Abs(i1.Area()-i2.Area()) > 1e-9 {
		t.Errorf("intersection not commutative: %v vs %v", i1.Area(), i2.Area())
	}
}

func TestAssociativity(t *testing.T) {
	a := set(rect(0, 0, 10, 10))
	b := set(rect(5, 5, 15, 15))
	c := set(rect(8, 0, 18, 6))

	union := func(x, y geom.Set) geom.Set {
		t.Helper()
		out, err := Union(x, y)
		if err != nil {
			t.Fatalf("Union: %v", err)
		}
		return out
	}
	inter := func(x, y geom.Set) geom.Set {
		t.Helper()
		out, err := Intersection(x, y)
		if err != nil {
			t.Fatalf("Intersection: %v", err)
		}
		return out
	}

	u1 := union(union(a, b), c)
	u2 := union(a, union(b, c))
	if math.Abs(u1.Area()-u2.Area()) > 1e-6 {
		t.Errorf("union not associative: %v vs %v", u1.Area(), u2.Area())
	}
	i1 := inter(inter(a, b), c)
	i2 := inter(a, inter(b, c))
	if math.Abs(i1.Area()-i2.Area()) > 1e-6 {
		t.Errorf("intersection not associative: %v vs %v", i1.Area(), i2.Area())
	}

	// Grouping must also agree pointwise, not just on area.
	for _, p := range []geom.Point{{X: 9, Y: 5}, {X: 12, Y: 12}, {X: 16, Y: 3}, {X: 2, Y: 8}} {
		if u1.Contains(p) != u2.Contains(p) {
			t.Errorf("union groupings disagree at %v", p)
		}
		if i1.Contains(p) != i2.Contains(p) {
			t.Errorf("intersection groupings disagree at %v", p)
		}
	}
}

func TestRejectsNonSimple(t *testing.T) {
	bowtie := geom.Set{{Outer: geom.Ring{
		{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2},
	}}}
	if _, err := Union(bowtie, set(rect(0, 0, 1, 1))); !errors.Is(err, errors.ErrCodeInvalidPolygon) {
		t.Errorf("err = %v, want INVALID_POLYGON", err)
	}
}
