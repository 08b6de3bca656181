package raster

import (
	"image"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/doughlab/cookieforge/pkg/errors"
)

// BinarizeOptions controls thresholding.
type BinarizeOptions struct {
	// Threshold is the grayscale cutoff (0-255). Pixels darker than the
	// threshold become foreground, matching dark-drawing-on-light-background
	// input. Clean two-color art works with any mid value.
	Threshold uint8

	// Invert flips the convention for white-on-black drawings.
	Invert bool
}

// DefaultThreshold suits scanned line art with some gray bleed.
const DefaultThreshold = 180

// Binarize decodes an image and thresholds it into a strictly two-valued
// Bitmap. PNG, JPEG, GIF, BMP and TIFF inputs are accepted.
func Binarize(r io.Reader, opts BinarizeOptions) (*Bitmap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode image")
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}

	bounds := img.Bounds()
	bm := NewBitmap(bounds.Dx(), bounds.Dy())
	cut := uint32(opts.Threshold) << 8 // compare in 16-bit color space
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			// Rec. 601 luma.
			luma := (299*cr + 587*cg + 114*cb) / 1000
			fg := luma < cut
			if opts.Invert {
				fg = !fg
			}
			bm.Set(x-bounds.Min.X, y-bounds.Min.Y, fg)
		}
	}
	return bm, nil
}

// BinarizeFile is a convenience wrapper around [Binarize] for file paths.
func BinarizeFile(path string, opts BinarizeOptions) (*Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return Binarize(f, opts)
}
