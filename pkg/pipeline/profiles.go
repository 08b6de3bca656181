package pipeline

import (
	"math"

	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
	"github.com/doughlab/cookieforge/pkg/geom/boolop"
	"github.com/doughlab/cookieforge/pkg/geom/offset"
)

// offsetOptions maps the mesh config onto offset joins. The arc step follows
// segments_per_circle so offset arcs and lathed surfaces tessellate alike.
func offsetOptions(cfg config.Config) offset.Options {
	opts := offset.Options{
		ArcStep: 2 * math.Pi / float64(cfg.Mesh.SegmentsPerCircle),
	}
	if cfg.Mesh.CornerStyle == config.CornerMiter {
		opts.Join = offset.JoinMiter
		opts.MiterLimit = cfg.Mesh.MiterLimit
	}
	return opts
}

// BuildProfiles composes every named 2D stratum from the scaled outline and
// detail. The sets are millimeter-space and immutable; both artifact builders
// read from the same ProfileSet.
func BuildProfiles(outline, detail geom.Set, cfg config.Config) (*ProfileSet, error) {
	opts := offsetOptions(cfg)
	off := func(s geom.Set, d float64) (geom.Set, error) {
		return offset.Offset(s, d, opts)
	}

	wallOuter, err := off(outline, cfg.Cutter.Wall)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "cutter wall outer offset")
	}
	wallInner, err := off(outline, -cfg.Cutter.InnerShrink)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "cutter wall inner offset")
	}
	wall, err := boolop.Difference(wallOuter, wallInner)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "cutter wall ring")
	}

	var lip geom.Set
	if cfg.Cutter.LipWidth > 0 {
		lipOuter, err := off(outline, cfg.Cutter.Wall+cfg.Cutter.LipWidth)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "cutter lip outer offset")
		}
		lip, err = boolop.Difference(lipOuter, wallOuter)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "cutter lip ring")
		}
	}

	// The stamp presses from a solid plate, so the base uses the outline with
	// its holes filled in. Island detail lives exactly in those holes; keeping
	// them would erase it from the intersection below.
	base, err := off(filled(outline), -(cfg.Cutter.InnerShrink + cfg.Stamp.Clearance))
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "stamp base offset")
	}

	detailInset, err := off(detail, -cfg.Stamp.Clearance)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "stamp detail offset")
	}
	var raised geom.Set
	switch cfg.Stamp.DetailMode {
	case config.DetailSilhouette:
		raised, err = boolop.Difference(base, detailInset)
	default:
		raised, err = boolop.Intersection(base, detailInset)
	}
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "stamp detail region")
	}

	return &ProfileSet{
		Outline:     outline,
		Detail:      detail,
		CutterWall:  wall,
		CutterLip:   lip,
		StampBase:   base,
		StampDetail: raised,
	}, nil
}

// filled returns the set with every hole dropped, keeping only outer rings.
func filled(s geom.Set) geom.Set {
	out := make(geom.Set, len(s))
	for i, p := range s {
		out[i] = geom.Poly{Outer: p.Outer}
	}
	return out
}

// bevelOuterDelta interpolates the outer wall offset across the bevel band:
// full wall thickness where the taper starts, edge thickness at the cutting
// edge. The inner boundary stays at -inner_shrink, so the wall thins
// monotonically toward the edge.
func bevelOuterDelta(cfg config.Cutter, step, steps int) float64 {
	t := float64(step) / float64(steps)
	top := cfg.EdgeWidth - cfg.InnerShrink
	return cfg.Wall + (top-cfg.Wall)*t
}
