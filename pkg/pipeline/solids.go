package pipeline

import (
	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
	"github.com/doughlab/cookieforge/pkg/geom/boolop"
	"github.com/doughlab/cookieforge/pkg/geom/offset"
	"github.com/doughlab/cookieforge/pkg/mesh"
)

// BuildCutterSolid extrudes the cutter strata: the core wall up to the bevel
// band, the stepped taper rings above it, and the press lip at the bottom.
// An empty core wall is structural and fails; an eroded bevel ring or absent
// lip is skipped.
func BuildCutterSolid(ps *ProfileSet, cfg config.Config) (*mesh.Solid, error) {
	if ps.CutterWall.Empty() {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "cutter wall profile is empty")
	}

	solid := &mesh.Solid{}
	cc := cfg.Cutter
	wallTop := cc.Height - cc.BevelBand

	wall, err := mesh.Extrude(ps.CutterWall, 0, wallTop)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "cutter wall")
	}
	solid.Shells = append(solid.Shells, wall)

	if cc.BevelBand > 0 {
		opts := offsetOptions(cfg)
		inner, err := offset.Offset(ps.Outline, -cc.InnerShrink, opts)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "bevel inner offset")
		}
		for i := 1; i <= cc.BevelSteps; i++ {
			outer, err := offset.Offset(ps.Outline, bevelOuterDelta(cc, i, cc.BevelSteps), opts)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "bevel outer offset %d", i)
			}
			ring, err := boolop.Difference(outer, inner)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "bevel ring %d", i)
			}
			if ring.Empty() {
				continue
			}
			z0 := wallTop + cc.BevelBand*float64(i-1)/float64(cc.BevelSteps)
			z1 := wallTop + cc.BevelBand*float64(i)/float64(cc.BevelSteps)
			sh, err := mesh.Extrude(ring, z0, z1)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "bevel ring %d", i)
			}
			solid.Shells = append(solid.Shells, sh)
		}
	}

	if !ps.CutterLip.Empty() {
		lip, err := mesh.Extrude(ps.CutterLip, 0, cc.LipHeight)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "cutter lip")
		}
		solid.Shells = append(solid.Shells, lip)
	}
	return solid, nil
}

// BuildStampSolid extrudes the stamp base and raised detail, then hangs the
// lathed handle under z=0 so the detail face points +Z.
func BuildStampSolid(ps *ProfileSet, cfg config.Config) (*mesh.Solid, error) {
	if ps.StampBase.Empty() {
		return nil, errors.New(errors.ErrCodeMeshAssembly, "stamp base profile is empty")
	}

	solid := &mesh.Solid{}
	sc := cfg.Stamp

	base, err := mesh.Extrude(ps.StampBase, 0, sc.BaseThickness)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "stamp base")
	}
	solid.Shells = append(solid.Shells, base)

	if !ps.StampDetail.Empty() {
		detail, err := mesh.Extrude(ps.StampDetail, sc.BaseThickness, sc.BaseThickness+sc.DetailRaise)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "stamp detail")
		}
		solid.Shells = append(solid.Shells, detail)
	}

	if sc.Handle.Enabled {
		handle, err := buildHandle(ps.StampBase, sc.Handle, cfg.Mesh.SegmentsPerCircle)
		if err != nil {
			return nil, err
		}
		solid.Shells = append(solid.Shells, handle)
	}
	return solid, nil
}

// buildHandle lathes the grip as one closed shell under the base center:
// attachment flare, waist, flared cap, rounded dome end.
func buildHandle(base geom.Set, h config.Handle, segs int) (mesh.Shell, error) {
	min, max := base.BBox()
	center := geom.Point{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2}

	zFlare := -h.FlareHeight
	zWaist := zFlare - h.WaistHeight
	zCap := zWaist - h.CapHeight

	profile := []mesh.LathePoint{
		{R: 0, Z: 0},
		{R: h.FlareRadius, Z: 0},
		{R: h.FlareRadius, Z: zFlare},
		{R: h.WaistRadius, Z: zFlare},
		{R: h.WaistRadius, Z: zWaist},
		{R: h.CapRadius, Z: zCap},
	}
	profile = append(profile, mesh.SphericalArc(h.CapRadius, h.DomeDepth, zCap, segs/4)[1:]...)

	sh, err := mesh.Lathe(center, profile, segs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMeshAssembly, err, "stamp handle")
	}
	return sh, nil
}
