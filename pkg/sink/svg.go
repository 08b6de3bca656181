package sink

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// Layer is one named, filled polygon set in a debug SVG.
type Layer struct {
	Name string
	Fill string
	Set  geom.Set
}

// WriteSVG renders the layers as stacked evenodd-filled paths in millimeter
// units, later layers on top. The viewBox covers all layers with a small
// margin so profiles are inspectable without further setup.
func WriteSVG(w io.Writer, layers []Layer) error {
	const margin = 2.0
	minP := geom.Point{X: 0, Y: 0}
	maxP := geom.Point{X: 1, Y: 1}
	first := true
	for _, l := range layers {
		if l.Set.Empty() {
			continue
		}
		lo, hi := l.Set.BBox()
		if first {
			minP, maxP = lo, hi
			first = false
			continue
		}
		if lo.X < minP.X {
			minP.X = lo.X
		}
		if lo.Y < minP.Y {
			minP.Y = lo.Y
		}
		if hi.X > maxP.X {
			maxP.X = hi.X
		}
		if hi.Y > maxP.Y {
			maxP.Y = hi.Y
		}
	}
	if first {
		return errors.New(errors.ErrCodeEmptyGeometry, "no layer has geometry to render")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape" viewBox="%.3f %.3f %.3f %.3f" width="%.3fmm" height="%.3fmm">`+"\n",
		minP.X-margin, minP.Y-margin,
		maxP.X-minP.X+2*margin, maxP.Y-minP.Y+2*margin,
		maxP.X-minP.X+2*margin, maxP.Y-minP.Y+2*margin)
	for _, l := range layers {
		if l.Set.Empty() {
			continue
		}
		// Inkscape layer attributes so each stratum can be toggled in an editor.
		fmt.Fprintf(&b, `  <g inkscape:groupmode="layer" inkscape:label=%q>`+"\n", l.Name)
		fmt.Fprintf(&b, `    <path id=%q fill=%q fill-rule="evenodd" d=%q/>`+"\n",
			l.Name, l.Fill, pathData(l.Set))
		b.WriteString("  </g>\n")
	}
	b.WriteString("</svg>\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write SVG")
	}
	return nil
}

// WriteSVGFile writes the layers to path, creating or truncating it.
func WriteSVGFile(path string, layers []Layer) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	if err := WriteSVG(f, layers); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	return nil
}

// pathData emits every ring of the set as a closed subpath; the evenodd fill
// rule recovers holes from the nesting.
func pathData(s geom.Set) string {
	var b strings.Builder
	for _, r := range s.Rings() {
		for i, p := range r {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&b, "%s%.3f %.3f ", cmd, p.X, p.Y)
		}
		b.WriteString("Z ")
	}
	return strings.TrimRight(b.String(), " ")
}
