package contour

import (
	"math"
	"testing"

	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/raster"
)

func fill(bm *raster.Bitmap, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			bm.Set(x, y, true)
		}
	}
}

func TestExtractSingleBlob(t *testing.T) {
	bm := raster.NewBitmap(16, 16)
	fill(bm, 2, 3, 10, 12)

	set, err := Extract(bm, Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("got %d polys, want 1", len(set))
	}
	if len(set[0].Holes) != 0 {
		t.Errorf("got %d holes, want 0", len(set[0].Holes))
	}
	if !set[0].Outer.IsCCW() {
		t.Error("outer must be CCW")
	}
	// An 8x9 pixel rectangle has area 72 in pixel units.
	if got := set[0].Area(); math.Abs(got-72) > 1 {
		t.Errorf("area = %v, want 72", got)
	}
}

func TestExtractDonut(t *testing.T) {
	bm := raster.NewBitmap(24, 24)
	fill(bm, 2, 2, 22, 22)
	for y := 8; y < 16; y++ {
		for x := 8; x < 16; x++ {
			bm.Set(x, y, false)
		}
	}

	set, err := Extract(bm, Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("got %d polys, want 1", len(set))
	}
	if len(set[0].Holes) != 1 {
		t.Fatalf("got %d holes, want 1", len(set[0].Holes))
	}
	if set[0].Holes[0].IsCCW() {
		t.Error("hole must be CW")
	}
	if got, want := set[0].Area(), 400.0-64.0; math.Abs(got-want) > 2 {
		t.Errorf("area = %v, want %v", got, want)
	}
}

func TestExtractIslandInHole(t *testing.T) {
	bm := raster.NewBitmap(32, 32)
	fill(bm, 1, 1, 31, 31)   // big blob
	for y := 6; y < 26; y++ { // carve a hole
		for x := 6; x < 26; x++ {
			bm.Set(x, y, false)
		}
	}
	fill(bm, 12, 12, 20, 20) // island inside the hole

	set, err := Extract(bm, Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("got %d polys, want 2 (blob + island)", len(set))
	}
}

func TestExtractTwoBlobs(t *testing.T) {
	bm := raster.NewBitmap(20, 10)
	fill(bm, 1, 1, 8, 8)
	fill(bm, 11, 1, 18, 8)

	set, err := Extract(bm, Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(set) != 2 {
		t.Errorf("got %d polys, want 2", len(set))
	}
}

func TestExtractAllWhite(t *testing.T) {
	_, err := Extract(raster.NewBitmap(8, 8), Options{})
	if !errors.Is(err, errors.ErrCodeEmptyGeometry) {
		t.Errorf("want EMPTY_GEOMETRY, got %v", err)
	}
}

func TestExtractAllBlack(t *testing.T) {
	bm := raster.NewBitmap(8, 8)
	fill(bm, 0, 0, 8, 8)
	_, err := Extract(bm, Options{})
	if !errors.Is(err, errors.ErrCodeEmptyGeometry) {
		t.Errorf("want EMPTY_GEOMETRY, got %v", err)
	}
}

func TestExtractMinAreaFilter(t *testing.T) {
	bm := raster.NewBitmap(20, 20)
	fill(bm, 1, 1, 15, 15)
	bm.Set(18, 18, true) // 1 px speck

	set, err := Extract(bm, Options{MinArea: 2})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(set) != 1 {
		t.Errorf("speck should be filtered, got %d polys", len(set))
	}
}

func TestExtractDiagonalPixelsSeparate(t *testing.T) {
	// Two pixels touching only at a corner are separate 4-connected regions.
	bm := raster.NewBitmap(4, 4)
	bm.Set(1, 1, true)
	bm.Set(2, 2, true)

	set, err := Extract(bm, Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(set) != 2 {
		t.Errorf("got %d polys, want 2", len(set))
	}
}

func TestExtractStaircaseSimplified(t *testing.T) {
	// Axis-aligned rectangle must reduce to exactly 4 corners.
	bm := raster.NewBitmap(12, 12)
	fill(bm, 2, 2, 10, 10)
	set, err := Extract(bm, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(set[0].Outer); got != 4 {
		t.Errorf("rectangle outline has %d vertices, want 4", got)
	}
}
