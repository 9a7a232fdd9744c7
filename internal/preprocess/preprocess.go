// Package preprocess turns a detected title band into high-contrast images
// the recognizer reads more reliably.
package preprocess

import (
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/disintegration/imaging"
)

// SharpenAmount is the unsharp-mask gain applied over a 3x3 box blur.
const SharpenAmount = 0.6

// Variant is one preprocessing parameter set.
type Variant struct {
	Scale     float64 `mapstructure:"scale" yaml:"scale" json:"scale"`
	Threshold uint8   `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	Invert    bool    `mapstructure:"invert" yaml:"invert" json:"invert"`
}

func (v Variant) String() string {
	mode := "dark-on-light"
	if v.Invert {
		mode = "light-on-dark"
	}
	return fmt.Sprintf("x%.1f/t%d/%s", v.Scale, v.Threshold, mode)
}

// unsharpKernel computes d + (d - box3x3(d)) * amount as a single 3x3 kernel.
func unsharpKernel(amount float64) [9]float64 {
	side := -amount / 9
	return [9]float64{
		side, side, side,
		side, 1 + amount + side, side,
		side, side, side,
	}
}

// Enhance upscales img by v.Scale, sharpens it and binarizes on luma.
// Without Invert, pixels brighter than the threshold become white and the
// rest black; Invert makes pixels darker than the threshold white.
// The result is deterministic for identical inputs.
func Enhance(img image.Image, v Variant) *image.Gray {
	b := img.Bounds()
	scale := v.Scale
	if scale <= 0 {
		scale = 1
	}
	w := max(1, int(math.Floor(float64(b.Dx())*scale)))
	h := max(1, int(math.Floor(float64(b.Dy())*scale)))

	var up *image.NRGBA
	if w == b.Dx() && h == b.Dy() {
		up = imaging.Clone(img)
	} else {
		up = imaging.Resize(img, w, h, imaging.Linear)
	}
	sharp := imaging.Convolve3x3(up, unsharpKernel(SharpenAmount), nil)

	out := image.NewGray(image.Rect(0, 0, w, h))
	thr := float32(v.Threshold)
	for y := 0; y < h; y++ {
		row := sharp.Pix[y*sharp.Stride : y*sharp.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			l := frame.Luma(p[0], p[1], p[2])
			var on bool
			if v.Invert {
				on = l < thr
			} else {
				on = l > thr
			}
			if on {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
