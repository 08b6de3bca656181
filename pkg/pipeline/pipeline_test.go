package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/doughlab/cookieforge/pkg/cache"
	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
	"github.com/doughlab/cookieforge/pkg/mesh"
)

// writePNG rasterizes fg (true = black) into a grayscale PNG at path.
func writePNG(t *testing.T, path string, w, h int, fg func(x, y int) bool) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if fg(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func diskImage(t *testing.T, dir string) string {
	path := filepath.Join(dir, "disk.png")
	writePNG(t, path, 128, 128, func(x, y int) bool {
		dx, dy := float64(x-64), float64(y-64)
		return dx*dx+dy*dy <= 40*40
	})
	return path
}

// donutImage draws an annulus; its enclosed hole becomes stamp detail in
// islands mode.
func donutImage(t *testing.T, dir string) string {
	path := filepath.Join(dir, "donut.png")
	writePNG(t, path, 128, 128, func(x, y int) bool {
		dx, dy := float64(x-64), float64(y-64)
		d2 := dx*dx + dy*dy
		return d2 <= 40*40 && d2 >= 18*18
	})
	return path
}

func rect(x0, y0, x1, y1 float64) geom.Set {
	return geom.Set{{Outer: geom.Ring{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}}
}

func bboxDims(s geom.Set) (float64, float64) {
	min, max := s.BBox()
	return max.X - min.X, max.Y - min.Y
}

func TestResolveScaleFitsLargerDimension(t *testing.T) {
	// 100x200 units at 0.1 mm/unit targeting 90 mm: the 200-unit side maps
	// to 90 mm, so mm-per-unit is 0.45.
	got, err := ResolveScale(rect(0, 0, 100, 200), config.Scale{TargetMinMm: 90, UnitsToMm: 0.1})
	if err != nil {
		t.Fatalf("ResolveScale: %v", err)
	}
	if math.Abs(got-0.45) > 1e-12 {
		t.Fatalf("mm per unit = %v, want 0.45", got)
	}
}

func TestResolveScaleRejectsDegenerateInput(t *testing.T) {
	if _, err := ResolveScale(nil, config.Scale{TargetMinMm: 90, UnitsToMm: 0.1}); err == nil {
		t.Fatal("empty outline accepted")
	}
	line := geom.Set{{Outer: geom.Ring{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 1e-12}}}}
	if _, err := ResolveScale(line, config.Scale{TargetMinMm: 90, UnitsToMm: 0.1}); err == nil {
		t.Fatal("degenerate bounds accepted")
	}
	_, err := ResolveScale(rect(0, 0, 10, 10), config.Scale{TargetMinMm: 0, UnitsToMm: 0.1})
	if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Fatalf("zero target: code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestApplyScaleFlipsY(t *testing.T) {
	outline := rect(0, 0, 10, 20)
	scaled, _ := ApplyScale(outline, nil, 0.5)

	w, h := bboxDims(scaled)
	if math.Abs(w-5) > 1e-9 || math.Abs(h-10) > 1e-9 {
		t.Fatalf("scaled bounds %v x %v, want 5 x 10", w, h)
	}
	// Raster top-left (0,0) lands at mesh top-left (0, maxY).
	for _, p := range scaled[0].Outer {
		if math.Abs(p.X) < 1e-9 && math.Abs(p.Y-10) < 1e-9 {
			return
		}
	}
	t.Fatal("origin pixel did not map to the flipped top edge")
}

func TestExecuteDiskProducesBothArtifacts(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{
		ImagePath: diskImage(t, dir),
		Config:    config.Default(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := res.Failed(); err != nil {
		t.Fatalf("artifact error: %v", err)
	}

	cfg := config.Default()

	// The outline's larger dimension is fit to the target size exactly.
	w, h := bboxDims(res.Profiles.Outline)
	if math.Abs(math.Max(w, h)-cfg.Scale.TargetMinMm) > 1e-6 {
		t.Fatalf("outline bounds %v x %v, want max %v", w, h, cfg.Scale.TargetMinMm)
	}

	// Wall ring grows the outline by the wall width on each side.
	ww, _ := bboxDims(res.Profiles.CutterWall)
	if math.Abs(ww-(90+2*cfg.Cutter.Wall)) > 2 {
		t.Fatalf("wall footprint %v, want about %v", ww, 90+2*cfg.Cutter.Wall)
	}

	// The lip extends wall+lip_width beyond the outline.
	lw, _ := bboxDims(res.Profiles.CutterLip)
	if math.Abs(lw-(90+2*(cfg.Cutter.Wall+cfg.Cutter.LipWidth))) > 2 {
		t.Fatalf("lip footprint %v, want about %v", lw, 90+2*(cfg.Cutter.Wall+cfg.Cutter.LipWidth))
	}

	// Stamp base sits inside the cutter by the shrink plus clearance.
	bw, _ := bboxDims(res.Profiles.StampBase)
	inset := cfg.Cutter.InnerShrink + cfg.Stamp.Clearance
	if math.Abs(bw-(90-2*inset)) > 2 {
		t.Fatalf("base footprint %v, want about %v", bw, 90-2*inset)
	}

	// A solid disk has no enclosed islands, so islands-mode detail is empty.
	if !res.Profiles.StampDetail.Empty() {
		t.Fatal("expected empty detail for an island-free silhouette")
	}

	for _, a := range []*ArtifactResult{res.Cutter, res.Stamp} {
		if a.Facets == 0 {
			t.Fatalf("%s has no facets", a.Name)
		}
		if len(a.STL) != 84+50*a.Facets {
			t.Fatalf("%s STL is %d bytes for %d facets", a.Name, len(a.STL), a.Facets)
		}
	}
}

func TestExecuteDonutRaisesIslandDetail(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{
		ImagePath: donutImage(t, dir),
		Config:    config.Default(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := res.Failed(); err != nil {
		t.Fatalf("artifact error: %v", err)
	}
	if res.Contours.Islands.Empty() {
		t.Fatal("annulus hole was not traced as an island")
	}
	if res.Profiles.StampDetail.Empty() {
		t.Fatal("island did not become raised detail")
	}
	// The raised region stays inside the ~36 mm hole after clearance.
	dw, dh := bboxDims(res.Profiles.StampDetail)
	if dw > 42 || dh > 42 {
		t.Fatalf("detail bounds %v x %v exceed the hole", dw, dh)
	}
}

func TestBuildProfilesRaisesIslandsOnFilledBase(t *testing.T) {
	// Islands are by construction the holes of the traced outline. The base
	// plate drops those holes, so the island region must survive into the
	// raised detail instead of being cancelled by the hole it came from.
	ring := func(x0, y0, x1, y1 float64) geom.Ring {
		return geom.Ring{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
	}
	outline := geom.Nest([]geom.Ring{ring(0, 0, 60, 60), ring(20, 20, 40, 40)})
	detail := geom.Nest([]geom.Ring{ring(20, 20, 40, 40)})

	ps, err := BuildProfiles(outline, detail, config.Default())
	if err != nil {
		t.Fatalf("BuildProfiles: %v", err)
	}
	for _, p := range ps.StampBase {
		if len(p.Holes) != 0 {
			t.Fatal("stamp base kept a hole from the outline")
		}
	}
	if ps.StampDetail.Empty() {
		t.Fatal("island did not survive into the raised detail")
	}
	min, max := ps.StampDetail.BBox()
	if min.X < 20-1e-9 || max.X > 40+1e-9 {
		t.Fatalf("detail bounds %v..%v escape the island", min.X, max.X)
	}
}

func TestSolidShellsAreWatertight(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{
		ImagePath: donutImage(t, dir),
		Config:    config.Default(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	cfg := config.Default()

	cutter, err := BuildCutterSolid(res.Profiles, cfg)
	if err != nil {
		t.Fatalf("BuildCutterSolid: %v", err)
	}
	stamp, err := BuildStampSolid(res.Profiles, cfg)
	if err != nil {
		t.Fatalf("BuildStampSolid: %v", err)
	}
	for _, solid := range []struct {
		name   string
		shells []mesh.Shell
	}{{"cutter", cutter.Shells}, {"stamp", stamp.Shells}} {
		for i, sh := range solid.shells {
			if !sh.IsManifold() {
				t.Errorf("%s shell %d is not watertight", solid.name, i)
			}
		}
	}
	// The wall follows both boundaries of the ring silhouette, so the wall
	// shell is two closed tubes.
	if x := cutter.Shells[0].EulerCharacteristic(); x != 0 {
		t.Errorf("wall Euler characteristic = %d, want 0", x)
	}
	// The base plate is solid even though the silhouette has a hole.
	if x := stamp.Shells[0].EulerCharacteristic(); x != 2 {
		t.Errorf("base Euler characteristic = %d, want 2", x)
	}
}

func TestExecuteEmptyImageFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.png")
	writePNG(t, path, 64, 64, func(x, y int) bool { return false })

	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(context.Background(), Options{ImagePath: path, Config: config.Default()})
	if errors.GetCode(err) != errors.ErrCodeEmptyGeometry {
		t.Fatalf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeEmptyGeometry)
	}
}

func TestExecuteServesSecondRunFromCache(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.NewFileCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	opts := Options{ImagePath: diskImage(t, dir), Config: config.Default()}
	r := NewRunner(c, nil, nil)

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CacheInfo.ContourHit || first.CacheInfo.ProfileHit {
		t.Fatal("cold cache reported hits")
	}

	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.CacheInfo.ContourHit || !second.CacheInfo.ProfileHit {
		t.Fatalf("warm cache missed: %+v", second.CacheInfo)
	}
	if !second.Cutter.CacheHit || !second.Stamp.CacheHit {
		t.Fatal("artifacts not served from cache")
	}
	if second.Cutter.Facets != first.Cutter.Facets {
		t.Fatalf("cached facet count %d != %d", second.Cutter.Facets, first.Cutter.Facets)
	}

	// Refresh bypasses every cached stage.
	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}
	if third.CacheInfo.ContourHit || third.Cutter.CacheHit {
		t.Fatal("refresh run read from cache")
	}
}

func TestExecuteArtifactSubset(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{
		ImagePath: diskImage(t, dir),
		Config:    config.Default(),
		Artifacts: []string{ArtifactCutter},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Cutter == nil || res.Cutter.Err != nil {
		t.Fatal("requested cutter missing")
	}
	if res.Stamp != nil {
		t.Fatal("unrequested stamp was built")
	}
}

func TestOptionsValidate(t *testing.T) {
	o := Options{Config: config.Default()}
	if err := o.Validate(); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("missing image: code = %v", errors.GetCode(err))
	}
	o.ImagePath = "in.png"
	o.Artifacts = []string{"mold"}
	if err := o.Validate(); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("unknown artifact: code = %v", errors.GetCode(err))
	}
	o.Artifacts = nil
	if err := o.Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}

func TestArtifactFailureIsIndependent(t *testing.T) {
	// A wall ring with no stamp base: the cutter builds, the stamp reports
	// its own error without disturbing the other artifact.
	outer := rect(0, 0, 20, 20)
	ps := &ProfileSet{
		Outline: outer,
		CutterWall: geom.Set{{
			Outer: geom.Ring{{X: -1, Y: -1}, {X: 21, Y: -1}, {X: 21, Y: 21}, {X: -1, Y: 21}},
			Holes: []geom.Ring{{{X: 0, Y: 0}, {X: 0, Y: 20}, {X: 20, Y: 20}, {X: 20, Y: 0}}},
		}},
	}
	r := NewRunner(nil, nil, nil)
	opts := Options{ImagePath: "in.png", Config: config.Default()}

	cutter := r.buildArtifact(context.Background(), ArtifactCutter, ps, "h", opts)
	if cutter.Err != nil {
		t.Fatalf("cutter failed: %v", cutter.Err)
	}
	stamp := r.buildArtifact(context.Background(), ArtifactStamp, ps, "h", opts)
	if stamp.Err == nil {
		t.Fatal("empty stamp base did not fail")
	}
	if errors.GetCode(stamp.Err) != errors.ErrCodeMeshAssembly {
		t.Fatalf("stamp error code = %v", errors.GetCode(stamp.Err))
	}
}

func TestDetailSourceSelectsMode(t *testing.T) {
	c := &Contours{
		Silhouette: rect(0, 0, 10, 10),
		Islands:    rect(2, 2, 8, 8),
	}
	if got := c.DetailSource(config.DetailSilhouette); got[0].Outer[1].X != 10 {
		t.Fatal("silhouette mode returned wrong set")
	}
	if got := c.DetailSource(config.DetailIslands); got[0].Outer[1].X != 8 {
		t.Fatal("islands mode returned wrong set")
	}
}

func TestExecuteSeparateDetailImage(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(nil, nil, nil)

	// A solid disk has no islands of its own; the donut detail image
	// supplies the enclosed region instead.
	res, err := r.Execute(context.Background(), Options{
		ImagePath:       diskImage(t, dir),
		DetailImagePath: donutImage(t, dir),
		Config:          config.Default(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := res.Failed(); err != nil {
		t.Fatalf("artifact error: %v", err)
	}
	if res.Profiles.StampDetail.Empty() {
		t.Fatal("detail image did not produce raised detail")
	}
}

func TestExecuteDetailImageDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.png")
	writePNG(t, small, 32, 32, func(x, y int) bool { return x > 8 && x < 24 && y > 8 && y < 24 })

	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(context.Background(), Options{
		ImagePath:       diskImage(t, dir),
		DetailImagePath: small,
		Config:          config.Default(),
	})
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}
