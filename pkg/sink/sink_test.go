package sink

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
	"github.com/doughlab/cookieforge/pkg/mesh"
)

func prism(t *testing.T) *mesh.Solid {
	t.Helper()
	sh, err := mesh.Extrude(geom.Nest([]geom.Ring{{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}}), 0, 5)
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	return &mesh.Solid{Shells: []mesh.Shell{sh}}
}

func TestWriteSTL(t *testing.T) {
	solid := prism(t)
	var buf bytes.Buffer
	if err := WriteSTL(&buf, "cutter", solid); err != nil {
		t.Fatalf("WriteSTL: %v", err)
	}

	raw := buf.Bytes()
	n := len(solid.Triangles())
	if want := 80 + 4 + 50*n; len(raw) != want {
		t.Fatalf("output is %d bytes, want %d", len(raw), want)
	}
	if !bytes.HasPrefix(raw, []byte("cutter")) {
		t.Error("header should carry the solid name")
	}
	if got := binary.LittleEndian.Uint32(raw[80:]); got != uint32(n) {
		t.Errorf("facet count = %d, want %d", got, n)
	}
	if raw[80+4+48] != 0 || raw[80+4+49] != 0 {
		t.Error("attribute byte count should be zero")
	}

	// Every record's normal is unit length.
	for i := 0; i < n; i++ {
		off := 84 + 50*i
		nx := math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		ny := math.Float32frombits(binary.LittleEndian.Uint32(raw[off+4:]))
		nz := math.Float32frombits(binary.LittleEndian.Uint32(raw[off+8:]))
		l := math.Sqrt(float64(nx*nx + ny*ny + nz*nz))
		if math.Abs(l-1) > 1e-5 {
			t.Fatalf("facet %d normal length %v, want 1", i, l)
		}
	}
}

func TestWriteSTLEmptySolid(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSTL(&buf, "x", &mesh.Solid{})
	if !errors.Is(err, errors.ErrCodeMeshAssembly) {
		t.Errorf("err = %v, want MESH_ASSEMBLY", err)
	}
}

func TestWriteSVG(t *testing.T) {
	outline := geom.Nest([]geom.Ring{
		{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}},
		{{X: 5, Y: 5}, {X: 15, Y: 5}, {X: 15, Y: 15}, {X: 5, Y: 15}},
	})
	detail := geom.Nest([]geom.Ring{
		{{X: 8, Y: 8}, {X: 12, Y: 8}, {X: 12, Y: 12}, {X: 8, Y: 12}},
	})

	var buf bytes.Buffer
	err := WriteSVG(&buf, []Layer{
		{Name: "outline", Fill: "#000000", Set: outline},
		{Name: "detail", Fill: "#d9534f", Set: detail},
	})
	if err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `fill-rule="evenodd"`) {
		t.Error("holes need the evenodd fill rule")
	}
	if strings.Count(out, "<path") != 2 {
		t.Errorf("want 2 path elements, got %d", strings.Count(out, "<path"))
	}
	if !strings.Contains(out, `id="outline"`) || !strings.Contains(out, `id="detail"`) {
		t.Error("layer names should become path ids")
	}
	if !strings.Contains(out, `inkscape:groupmode="layer"`) {
		t.Error("layers should carry inkscape layer attributes")
	}
	// Outer ring, hole ring, detail ring: three closed subpaths.
	if strings.Count(out, "Z") != 3 {
		t.Errorf("want 3 closed subpaths, got %d", strings.Count(out, "Z"))
	}
}

func TestWriteSVGAllEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSVG(&buf, []Layer{{Name: "outline", Fill: "#000", Set: nil}})
	if !errors.Is(err, errors.ErrCodeEmptyGeometry) {
		t.Errorf("err = %v, want EMPTY_GEOMETRY", err)
	}
}

func TestWriteJSON(t *testing.T) {
	outline := geom.Nest([]geom.Ring{
		{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}},
		{{X: 5, Y: 5}, {X: 15, Y: 5}, {X: 15, Y: 15}, {X: 5, Y: 15}},
	})

	var buf bytes.Buffer
	err := WriteJSON(&buf, []Layer{
		{Name: "outline", Fill: "#000000", Set: outline},
		{Name: "detail", Fill: "#d9534f", Set: nil},
	})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc struct {
		Meta struct {
			WidthMm  float64 `json:"width_mm"`
			HeightMm float64 `json:"height_mm"`
			Layers   int     `json:"layers"`
		} `json:"meta"`
		Layers []struct {
			Name  string        `json:"name"`
			Rings [][][]float64 `json:"rings"`
		} `json:"layers"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Meta.WidthMm != 20 || doc.Meta.HeightMm != 20 {
		t.Errorf("meta bounds %v x %v, want 20 x 20", doc.Meta.WidthMm, doc.Meta.HeightMm)
	}
	if doc.Meta.Layers != 1 || len(doc.Layers) != 1 {
		t.Fatalf("empty layer was exported: %+v", doc.Meta)
	}
	// Outer plus hole.
	if len(doc.Layers[0].Rings) != 2 {
		t.Errorf("want 2 rings, got %d", len(doc.Layers[0].Rings))
	}
}

func TestWriteJSONAllEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSON(&buf, []Layer{{Name: "outline", Set: nil}})
	if !errors.Is(err, errors.ErrCodeEmptyGeometry) {
		t.Errorf("err = %v, want EMPTY_GEOMETRY", err)
	}
}
