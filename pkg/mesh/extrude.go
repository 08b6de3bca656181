package mesh

import (
	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// Extrude lifts a polygon set into a closed prism shell between z0 and z1.
// Side walls follow every ring with outward normals (material of the profile
// is on the left of travel), the top cap is ear clipped at z1 and the bottom
// cap is the same triangulation wound downward at z0. An empty profile cannot
// form a shell and fails with MESH_ASSEMBLY; callers skip optional strata
// before extruding.
func Extrude(profile geom.Set, z0, z1 float64) (Shell, error) {
	if profile.Empty() {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "cannot extrude an empty profile")
	}
	if z1 <= z0 {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "stratum has no height: z %.3f..%.3f", z0, z1)
	}

	var sh Shell
	for _, r := range profile.Rings() {
		n := len(r)
		for i := 0; i < n; i++ {
			a, b := r[i], r[(i+1)%n]
			a0 := Vec3{a.X, a.Y, z0}
			b0 := Vec3{b.X, b.Y, z0}
			b1 := Vec3{b.X, b.Y, z1}
			a1 := Vec3{a.X, a.Y, z1}
			sh = append(sh, Triangle{a0, b0, b1}, Triangle{a0, b1, a1})
		}
	}

	for _, p := range profile {
		tris, err := triangulate(p)
		if err != nil {
			return nil, err
		}
		for _, t := range tris {
			top := Triangle{
				{t[0].X, t[0].Y, z1},
				{t[1].X, t[1].Y, z1},
				{t[2].X, t[2].Y, z1},
			}
			bottom := Triangle{
				{t[0].X, t[0].Y, z0},
				{t[2].X, t[2].Y, z0},
				{t[1].X, t[1].Y, z0},
			}
			sh = append(sh, top, bottom)
		}
	}
	return sh, nil
}
