package pipeline

import (
	"math"

	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
	"github.com/doughlab/cookieforge/pkg/geom/contour"
	"github.com/doughlab/cookieforge/pkg/raster"
)

// ExtractContours traces the bitmap into the cutting outline and both detail
// sources. The outline is the largest foreground region with its full hole
// nesting; smaller disconnected blobs do not cut. Islands are the enclosed
// white regions, the silhouette is the foreground itself.
func ExtractContours(bm *raster.Bitmap, cfg config.Contour) (*Contours, error) {
	copts := contour.Options{
		Tolerance: cfg.Tolerance,
		MinArea:   cfg.MinArea,
	}
	traced, err := contour.Extract(bm, copts)
	if err != nil {
		return nil, err
	}

	outline := largestRegion(traced)
	if outline.Empty() {
		return nil, errors.New(errors.ErrCodeEmptyGeometry, "no usable outline region")
	}

	var islands geom.Set
	if enclosed := bm.Enclosed(); enclosed.Count() > 0 {
		islands, err = contour.Extract(enclosed, copts)
		if err != nil && !errors.Is(err, errors.ErrCodeEmptyGeometry) {
			return nil, err
		}
	}

	return &Contours{
		Outline:    outline,
		Silhouette: traced,
		Islands:    islands,
		Width:      bm.W,
		Height:     bm.H,
	}, nil
}

// OverlayDetail replaces both detail sources with a trace of the separate
// detail bitmap, keeping the cutting outline from the main image. An empty
// detail image simply erases the detail; a flat stamp still embosses the
// outline.
func OverlayDetail(c *Contours, bm *raster.Bitmap, cfg config.Contour) error {
	if bm.W != c.Width || bm.H != c.Height {
		return errors.New(errors.ErrCodeInvalidInput,
			"detail image is %dx%d, silhouette is %dx%d", bm.W, bm.H, c.Width, c.Height)
	}
	d, err := ExtractContours(bm, cfg)
	if err != nil {
		if errors.Is(err, errors.ErrCodeEmptyGeometry) {
			c.Silhouette, c.Islands = nil, nil
			return nil
		}
		return err
	}
	c.Silhouette = d.Silhouette
	c.Islands = d.Islands
	return nil
}

// largestRegion picks the polygon with the biggest outer area.
func largestRegion(s geom.Set) geom.Set {
	best := -1
	bestArea := 0.0
	for i, p := range s {
		if a := math.Abs(p.Outer.Area()); a > bestArea {
			best, bestArea = i, a
		}
	}
	if best < 0 {
		return nil
	}
	return geom.Set{s[best].Clone()}
}
