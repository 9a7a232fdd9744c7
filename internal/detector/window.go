package detector

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/utils"
)

// Probe rows (fractions of height) used to find the card's horizontal extent.
var activeProbeRows = []float64{0.10, 0.14, 0.18}

const (
	activeCutoff   = 0.06
	activeMinWidth = 0.5
	activeMargin   = 2
)

// ActiveSpan returns the horizontal extent [x, x+w) of the bright card area,
// judged by summed luma across a few rows near the top of the frame.
// If the extent covers less than half the frame the full width is returned.
func ActiveSpan(f *frame.Frame) (int, int) {
	W, H := f.Width(), f.Height()
	if W == 0 || H == 0 {
		return 0, W
	}
	energy := make([]float64, W)
	for _, pct := range activeProbeRows {
		y := min(H-1, int(math.Floor(float64(H)*pct)))
		plane, _, _ := frame.Luminance(f.Image, image.Rect(0, y, W, y+1))
		for x, v := range plane {
			energy[x] += float64(v)
		}
	}

	var peak float64
	for _, v := range energy {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}
	cutoff := peak * activeCutoff
	left, right := 0, W-1
	for left < right && energy[left] < cutoff {
		left++
	}
	for right > left && energy[right] < cutoff {
		right--
	}
	if float64(right-left+1) < float64(W)*activeMinWidth {
		return 0, W
	}
	left = max(0, left-activeMargin)
	right = min(W-1, right+activeMargin)
	return left, max(1, right-left+1)
}

// SearchWindow derives the sweep window for f: the active card span inset
// from both sides (with the configured nudges), spanning SearchTop to
// SearchBottom vertically.
func (d *Detector) SearchWindow(f *frame.Frame) image.Rectangle {
	W, H := f.Width(), f.Height()
	ax, aw := ActiveSpan(f)

	x0 := int(math.Floor(float64(ax) + float64(aw)*d.cfg.HorizInset + float64(d.cfg.HorizOffsetPx)))
	w0 := int(math.Floor(float64(aw) * (1 - 2*d.cfg.HorizInset)))
	rightEdge := x0 + w0

	x := max(0, x0-d.cfg.ExtraLeftPx)
	w := max(1, min(W-x, rightEdge-x))

	yStart := int(math.Floor(float64(H) * d.cfg.SearchTop))
	yEnd := int(math.Floor(float64(H) * d.cfg.SearchBottom))
	return image.Rect(x, yStart, x+w, yEnd).Intersect(f.Bounds())
}

// RenderOverlay returns a copy of f with the search window and chosen region
// outlined. Too-empty regions are drawn in the window colour.
func RenderOverlay(f *frame.Frame, window image.Rectangle, r Region, regionColor, windowColor color.Color) *image.RGBA {
	out := image.NewRGBA(f.Bounds())
	draw.Draw(out, out.Bounds(), f.Image, image.Point{}, draw.Src)
	utils.DrawRect(out, window, windowColor, 1)
	c := regionColor
	if r.TooEmpty {
		c = windowColor
	}
	utils.DrawRect(out, r.Rect, c, 2)
	return out
}
