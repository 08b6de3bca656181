// Package raster provides the two-valued Bitmap consumed by contour extraction
// and the Binarizer that produces it from an image file.
package raster

// Bitmap is an immutable two-valued pixel grid, row-major, with (0,0) at the
// top-left corner. True pixels are foreground.
type Bitmap struct {
	W, H int
	pix  []bool
}

// NewBitmap creates an all-background bitmap of the given size.
func NewBitmap(w, h int) *Bitmap {
	return &Bitmap{W: w, H: h, pix: make([]bool, w*h)}
}

// At reports whether the pixel at (x, y) is foreground. Out-of-bounds
// coordinates are background, which lets boundary tracing treat the image
// border as implicit background.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return false
	}
	return b.pix[y*b.W+x]
}

// Set marks the pixel at (x, y). Used only during construction; a Bitmap is
// immutable once handed to the pipeline.
func (b *Bitmap) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return
	}
	b.pix[y*b.W+x] = v
}

// Count returns the number of foreground pixels.
func (b *Bitmap) Count() int {
	n := 0
	for _, v := range b.pix {
		if v {
			n++
		}
	}
	return n
}

// Invert returns a new bitmap with foreground and background swapped.
func (b *Bitmap) Invert() *Bitmap {
	out := NewBitmap(b.W, b.H)
	for i, v := range b.pix {
		out.pix[i] = !v
	}
	return out
}

// And returns the pixel-wise conjunction of two same-sized bitmaps.
func (b *Bitmap) And(o *Bitmap) *Bitmap {
	out := NewBitmap(b.W, b.H)
	for i := range b.pix {
		out.pix[i] = b.pix[i] && o.pix[i]
	}
	return out
}

// Bytes returns a stable serialization of the bitmap, used for cache keys.
func (b *Bitmap) Bytes() []byte {
	out := make([]byte, 8+(len(b.pix)+7)/8)
	out[0] = byte(b.W >> 24)
	out[1] = byte(b.W >> 16)
	out[2] = byte(b.W >> 8)
	out[3] = byte(b.W)
	out[4] = byte(b.H >> 24)
	out[5] = byte(b.H >> 16)
	out[6] = byte(b.H >> 8)
	out[7] = byte(b.H)
	for i, v := range b.pix {
		if v {
			out[8+i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// Enclosed returns the background pixels that are fully enclosed by
// foreground: background regions with no path to the image border. This is
// how interior detail islands are recovered from a silhouette (white regions
// inside the black drawing).
func (b *Bitmap) Enclosed() *Bitmap {
	reach := make([]bool, b.W*b.H)
	var stack [][2]int
	push := func(x, y int) {
		if x < 0 || y < 0 || x >= b.W || y >= b.H {
			return
		}
		i := y*b.W + x
		if reach[i] || b.pix[i] {
			return
		}
		reach[i] = true
		stack = append(stack, [2]int{x, y})
	}
	for x := 0; x < b.W; x++ {
		push(x, 0)
		push(x, b.H-1)
	}
	for y := 0; y < b.H; y++ {
		push(0, y)
		push(b.W-1, y)
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		push(p[0]+1, p[1])
		push(p[0]-1, p[1])
		push(p[0], p[1]+1)
		push(p[0], p[1]-1)
	}

	out := NewBitmap(b.W, b.H)
	for i := range b.pix {
		out.pix[i] = !b.pix[i] && !reach[i]
	}
	return out
}
