package pipeline

import "github.com/doughlab/cookieforge/pkg/sink"

// TraceLayers arranges the profile strata as SVG layers, bottom of the print
// first so the raised detail draws on top. Colors separate the cutter family
// (blues) from the stamp family (warm tones).
func TraceLayers(ps *ProfileSet) []sink.Layer {
	return []sink.Layer{
		{Name: "outline", Fill: "#d0d7de", Set: ps.Outline},
		{Name: "cutter-lip", Fill: "#79b8ff", Set: ps.CutterLip},
		{Name: "cutter-wall", Fill: "#1f6feb", Set: ps.CutterWall},
		{Name: "stamp-base", Fill: "#f2cc8f", Set: ps.StampBase},
		{Name: "stamp-detail", Fill: "#e07a5f", Set: ps.StampDetail},
	}
}
