package frame

import "image"

// Rec.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Luma returns the Rec.601 luminance of an 8-bit RGB triple.
func Luma(r, g, b uint8) float32 {
	return lumaR*float32(r) + lumaG*float32(g) + lumaB*float32(b)
}

// Luminance returns the row-major luma plane of rect (clamped to the image).
// The second and third results are the plane's width and height.
func Luminance(img *image.RGBA, rect image.Rectangle) ([]float32, int, int) {
	rect = rect.Intersect(img.Bounds())
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, 0
	}
	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(rect.Min.X, rect.Min.Y+y)
		row := img.Pix[off : off+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			out[y*w+x] = Luma(p[0], p[1], p[2])
		}
	}
	return out, w, h
}

// SampleVector area-averages the luma of rect onto a fixed cols x rows grid.
// Regions of slightly different size thus produce comparable vectors.
// An empty rect yields nil.
func SampleVector(img *image.RGBA, rect image.Rectangle, cols, rows int) []float32 {
	plane, w, h := Luminance(img, rect)
	if plane == nil || cols <= 0 || rows <= 0 {
		return nil
	}
	out := make([]float32, cols*rows)
	for gy := 0; gy < rows; gy++ {
		y0, y1 := cellSpan(gy, rows, h)
		for gx := 0; gx < cols; gx++ {
			x0, x1 := cellSpan(gx, cols, w)
			var sum float32
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += plane[y*w+x]
				}
			}
			out[gy*cols+gx] = sum / float32((x1-x0)*(y1-y0))
		}
	}
	return out
}

// cellSpan maps grid cell i of n onto [lo, hi) of a length-size axis,
// always covering at least one pixel.
func cellSpan(i, n, size int) (int, int) {
	lo := i * size / n
	hi := (i + 1) * size / n
	if lo >= size {
		lo = size - 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}
