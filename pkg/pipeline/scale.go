package pipeline

import (
	"math"

	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// ResolveScale computes the uniform unit-to-millimeter factor that fits the
// outline's larger bounding dimension to the target size, so the smaller one
// never exceeds it. Applied once; every later offset and thickness is true
// millimeters.
func ResolveScale(outline geom.Set, cfg config.Scale) (float64, error) {
	if outline.Empty() {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "cannot scale an empty outline")
	}
	min, max := outline.BBox()
	w := max.X - min.X
	h := max.Y - min.Y
	if w < geom.Eps || h < geom.Eps {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "degenerate silhouette bounds %.3f x %.3f", w, h)
	}
	if cfg.TargetMinMm <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidConfig, "target dimension %.3f mm is not positive", cfg.TargetMinMm)
	}
	factor := cfg.TargetMinMm / (math.Max(w, h) * cfg.UnitsToMm)
	return factor * cfg.UnitsToMm, nil
}

// ApplyScale maps pixel-space sets into millimeter mesh space: translate to
// the outline's origin, scale uniformly, and flip Y so raster down becomes
// mesh up and stamp detail reads unmirrored from +Z. Winding is renormalized
// by the transform.
func ApplyScale(outline, detail geom.Set, mmPerUnit float64) (geom.Set, geom.Set) {
	min, max := outline.BBox()
	flip := func(p geom.Point) geom.Point {
		return geom.Point{
			X: (p.X - min.X) * mmPerUnit,
			Y: (max.Y - p.Y) * mmPerUnit,
		}
	}
	return outline.Transform(flip), detail.Transform(flip)
}
