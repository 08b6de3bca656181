// Package mesh builds and validates watertight triangle meshes.
//
// A Solid is a set of closed shells. Strata of an extruded artifact and the
// stacked handle primitives are emitted as independent closed shells rather
// than being fused with 3D booleans; slicers resolve the overlaps, and every
// shell on its own is 2-manifold with outward-facing normals.
package mesh

import (
	"math"
)

// Vec3 is a point or direction in mesh space (millimeters).
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }

func (a Vec3) Unit() Vec3 {
	n := a.Norm()
	if n == 0 {
		return Vec3{}
	}
	return a.Scale(1 / n)
}

// Triangle is a facet with counter-clockwise winding seen from outside.
type Triangle [3]Vec3

// Normal returns the unit facet normal, zero for degenerate facets.
func (t Triangle) Normal() Vec3 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Unit()
}

// Area returns the facet area.
func (t Triangle) Area() float64 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Norm() / 2
}

// Shell is one closed triangle surface.
type Shell []Triangle

// Solid is a printable body made of one or more closed shells.
type Solid struct {
	Shells []Shell
}

// Triangles flattens all shells into one facet list for export.
func (s *Solid) Triangles() []Triangle {
	n := 0
	for _, sh := range s.Shells {
		n += len(sh)
	}
	out := make([]Triangle, 0, n)
	for _, sh := range s.Shells {
		out = append(out, sh...)
	}
	return out
}

// Empty reports whether the solid has no facets.
func (s *Solid) Empty() bool {
	for _, sh := range s.Shells {
		if len(sh) > 0 {
			return false
		}
	}
	return true
}

// BBox returns the axis-aligned bounds over all shells.
func (s *Solid) BBox() (min, max Vec3) {
	min = Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, sh := range s.Shells {
		for _, t := range sh {
			for _, v := range t {
				min.X = math.Min(min.X, v.X)
				min.Y = math.Min(min.Y, v.Y)
				min.Z = math.Min(min.Z, v.Z)
				max.X = math.Max(max.X, v.X)
				max.Y = math.Max(max.Y, v.Y)
				max.Z = math.Max(max.Z, v.Z)
			}
		}
	}
	return min, max
}

// vkey quantizes a vertex so shared corners hash identically.
type vkey struct {
	x, y, z int64
}

func keyOf(v Vec3) vkey {
	const q = 1e6
	return vkey{int64(math.Round(v.X * q)), int64(math.Round(v.Y * q)), int64(math.Round(v.Z * q))}
}

// IsManifold reports whether every directed edge of the shell is balanced by
// as many opposite directed edges. This is the watertightness check: an open
// boundary or a flipped facet breaks the pairing. Zero-width cap bridges use
// an edge twice per direction and still balance.
func (sh Shell) IsManifold() bool {
	type edge struct{ a, b vkey }
	count := make(map[edge]int, len(sh)*3)
	for _, t := range sh {
		for i := 0; i < 3; i++ {
			a := keyOf(t[i])
			b := keyOf(t[(i+1)%3])
			if a == b {
				return false
			}
			count[edge{a, b}]++
		}
	}
	for e, n := range count {
		if count[edge{e.b, e.a}] != n {
			return false
		}
	}
	return true
}

// EulerCharacteristic returns V - E + F over deduplicated vertices and
// undirected edges. Closed genus-0 shells yield 2.
func (sh Shell) EulerCharacteristic() int {
	verts := make(map[vkey]struct{})
	type edge struct{ a, b vkey }
	edges := make(map[edge]struct{})
	for _, t := range sh {
		for i := 0; i < 3; i++ {
			a := keyOf(t[i])
			b := keyOf(t[(i+1)%3])
			verts[a] = struct{}{}
			if b.x < a.x || (b.x == a.x && (b.y < a.y || (b.y == a.y && b.z < a.z))) {
				a, b = b, a
			}
			edges[edge{a, b}] = struct{}{}
		}
	}
	return len(verts) - len(edges) + len(sh)
}

// Volume returns the signed enclosed volume via the divergence theorem.
// Positive for outward-oriented closed shells.
func (sh Shell) Volume() float64 {
	var v float64
	for _, t := range sh {
		v += t[0].Dot(t[1].Cross(t[2])) / 6
	}
	return v
}
