package sink

import (
	"encoding/json"
	"io"
	"os"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// TraceMeta is the bounding-box summary emitted with a JSON trace.
type TraceMeta struct {
	MinX     float64 `json:"min_x"`
	MinY     float64 `json:"min_y"`
	WidthMm  float64 `json:"width_mm"`
	HeightMm float64 `json:"height_mm"`
	Layers   int     `json:"layers"`
}

// traceLayer is one layer's geometry as nested coordinate rings. Each ring
// is a list of [x, y] pairs; holes follow their outer within a polygon.
type traceLayer struct {
	Name  string        `json:"name"`
	Fill  string        `json:"fill"`
	Rings [][][]float64 `json:"rings"`
}

type traceDoc struct {
	Meta   TraceMeta    `json:"meta"`
	Layers []traceLayer `json:"layers"`
}

// WriteJSON emits the layers as an indented JSON document with bounding-box
// metadata, the machine-readable sibling of [WriteSVG].
func WriteJSON(w io.Writer, layers []Layer) error {
	doc := traceDoc{Layers: []traceLayer{}}
	var lo, hi geom.Point
	seen := false

	for _, l := range layers {
		if l.Set.Empty() {
			continue
		}
		bLo, bHi := l.Set.BBox()
		if !seen {
			lo, hi = bLo, bHi
			seen = true
		} else {
			if bLo.X < lo.X {
				lo.X = bLo.X
			}
			if bLo.Y < lo.Y {
				lo.Y = bLo.Y
			}
			if bHi.X > hi.X {
				hi.X = bHi.X
			}
			if bHi.Y > hi.Y {
				hi.Y = bHi.Y
			}
		}
		doc.Layers = append(doc.Layers, traceLayer{
			Name:  l.Name,
			Fill:  l.Fill,
			Rings: ringsOf(l.Set),
		})
	}
	if !seen {
		return errors.New(errors.ErrCodeEmptyGeometry, "no layer has geometry to export")
	}

	doc.Meta = TraceMeta{
		MinX:     lo.X,
		MinY:     lo.Y,
		WidthMm:  hi.X - lo.X,
		HeightMm: hi.Y - lo.Y,
		Layers:   len(doc.Layers),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write JSON trace")
	}
	return nil
}

// WriteJSONFile writes the layers to path, creating or truncating it.
func WriteJSONFile(path string, layers []Layer) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	if err := WriteJSON(f, layers); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}

func ringsOf(s geom.Set) [][][]float64 {
	out := make([][][]float64, 0, len(s))
	for _, p := range s {
		rings := append([]geom.Ring{p.Outer}, p.Holes...)
		for _, r := range rings {
			ring := make([][]float64, 0, len(r))
			for _, pt := range r {
				ring = append(ring, []float64{pt.X, pt.Y})
			}
			out = append(out, ring)
		}
	}
	return out
}
