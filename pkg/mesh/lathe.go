package mesh

import (
	"math"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// LathePoint is one row of a revolution profile: radius R at height Z.
type LathePoint struct {
	R, Z float64
}

// Lathe revolves a profile polyline around the vertical axis through c. The
// profile is ordered top to bottom and must start and end on the axis
// (R == 0) so the shell closes. segs is the number of angular steps.
func Lathe(c geom.Point, profile []LathePoint, segs int) (Shell, error) {
	if len(profile) < 3 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "lathe profile has %d rows", len(profile))
	}
	if profile[0].R != 0 || profile[len(profile)-1].R != 0 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "lathe profile must start and end on the axis")
	}
	if segs < 3 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "lathe needs at least 3 segments, got %d", segs)
	}
	for _, p := range profile {
		if p.R < 0 {
			return nil, errors.New(errors.ErrCodeMeshAssembly, "negative lathe radius %.3f", p.R)
		}
	}

	at := func(p LathePoint, k int) Vec3 {
		a := 2 * math.Pi * float64(k%segs) / float64(segs)
		return Vec3{c.X + p.R*math.Cos(a), c.Y + p.R*math.Sin(a), p.Z}
	}

	var sh Shell
	for i := 0; i+1 < len(profile); i++ {
		p, q := profile[i], profile[i+1]
		if p.R == 0 && q.R == 0 {
			continue
		}
		for k := 0; k < segs; k++ {
			// Quad between the two rows; degenerate corners collapse to fans.
			t1 := Triangle{at(p, k), at(q, k), at(q, k+1)}
			t2 := Triangle{at(p, k), at(q, k+1), at(p, k+1)}
			if t1.Area() > geom.Eps {
				sh = append(sh, t1)
			}
			if t2.Area() > geom.Eps {
				sh = append(sh, t2)
			}
		}
	}
	if len(sh) == 0 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "lathe profile encloses no surface")
	}
	return sh, nil
}

// Cylinder returns a closed upright cylinder shell.
func Cylinder(c geom.Point, r, z0, z1 float64, segs int) (Shell, error) {
	if r <= 0 || z1 <= z0 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "degenerate cylinder r=%.3f z=%.3f..%.3f", r, z0, z1)
	}
	return Lathe(c, []LathePoint{{0, z1}, {r, z1}, {r, z0}, {0, z0}}, segs)
}

// Frustum returns a closed truncated cone, radius r1 at the top z1 and r0 at
// the bottom z0.
func Frustum(c geom.Point, r0, r1, z0, z1 float64, segs int) (Shell, error) {
	if r0 <= 0 || r1 <= 0 || z1 <= z0 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "degenerate frustum r=%.3f..%.3f z=%.3f..%.3f", r0, r1, z0, z1)
	}
	return Lathe(c, []LathePoint{{0, z1}, {r1, z1}, {r0, z0}, {0, z0}}, segs)
}

// SphericalArc samples the profile of a downward spherical cap: starting at
// radius baseR at height z0 and ending on the axis at z0-h. The first row
// (baseR, z0) is included, letting callers splice the arc onto a larger
// profile.
func SphericalArc(baseR, h, z0 float64, steps int) []LathePoint {
	if steps < 2 {
		steps = 2
	}
	// Sphere through the base circle and the apex.
	sphereR := (baseR*baseR + h*h) / (2 * h)
	zc := z0 - h + sphereR // sphere center height
	a0 := math.Asin((z0 - zc) / sphereR)

	rows := []LathePoint{{baseR, z0}}
	for k := 1; k < steps; k++ {
		// Sweep from the base latitude down to the apex at -pi/2.
		a := a0 + (-math.Pi/2-a0)*float64(k)/float64(steps)
		rows = append(rows, LathePoint{sphereR * math.Cos(a), zc + sphereR*math.Sin(a)})
	}
	return append(rows, LathePoint{0, z0 - h})
}

// Dome returns a closed downward spherical cap: base disk of radius baseR at
// z0, bulging down by h.
func Dome(c geom.Point, baseR, h, z0 float64, segs int) (Shell, error) {
	if baseR <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "degenerate dome r=%.3f h=%.3f", baseR, h)
	}
	rows := append([]LathePoint{{0, z0}}, SphericalArc(baseR, h, z0, segs/4)...)
	return Lathe(c, rows, segs)
}
