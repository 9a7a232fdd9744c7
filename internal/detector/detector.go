// Package detector locates the horizontal band of a card frame most likely to
// hold the printed title, using a small sweep of Sobel edge-energy bands.
package detector

import (
	"image"
	"math"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/mempool"
	"github.com/disintegration/imaging"
)

// Region is the band chosen for a frame, in frame pixel coordinates.
type Region struct {
	Rect     image.Rectangle `json:"rect"`
	Score    float64         `json:"score"`
	TooEmpty bool            `json:"too_empty"`
}

// Crop returns the region's pixels from f.
func (r Region) Crop(f *frame.Frame) *image.NRGBA {
	return imaging.Crop(f.Image, r.Rect)
}

// Detector scores candidate bands. It holds no per-frame state and is safe
// for concurrent use.
type Detector struct {
	cfg Config
}

// New creates a detector; a config failing Validate falls back to defaults.
func New(cfg Config) *Detector {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	return &Detector{cfg: cfg}
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect sweeps every configured band height at every vertical offset inside
// window and returns the highest scoring band, first seen winning ties.
// When nothing can be scored a default-sized rectangle at the top of the
// window, clipped to the window, is returned with score 0.
func (d *Detector) Detect(f *frame.Frame, window image.Rectangle) Region {
	window = window.Intersect(f.Bounds())
	H := f.Height()

	plane, pw, _ := frame.Luminance(f.Image, window)
	step := max(d.cfg.MinVertStepPx, int(math.Floor(float64(H)*d.cfg.VertStep)))
	step = max(step, 1)

	best := Region{Score: math.Inf(-1)}
	found := false
	for _, hf := range d.cfg.BandHeights {
		bandH := int(math.Floor(float64(H) * hf))
		if bandH < 1 {
			continue
		}
		for y := window.Min.Y; y+bandH <= window.Max.Y; y += step {
			off := (y - window.Min.Y) * pw
			cand := d.scoreBand(plane[off:off+bandH*pw], pw, bandH)
			cand.Rect = cand.Rect.Add(image.Pt(window.Min.X, y))
			if !found || cand.Score > best.Score {
				best = cand
				found = true
			}
		}
	}

	if !found {
		bandH := max(1, int(math.Floor(float64(H)*d.cfg.defaultBandHeight())))
		rect := image.Rect(window.Min.X, window.Min.Y, window.Max.X, window.Min.Y+bandH).Intersect(f.Bounds())
		if window.Empty() {
			rect = image.Rect(0, 0, f.Width(), bandH).Intersect(f.Bounds())
		} else {
			rect = rect.Intersect(window)
		}
		return Region{Rect: rect, Score: 0, TooEmpty: true}
	}

	best.TooEmpty = best.Score < d.cfg.MinBandEnergy
	return best
}

// DetectFrame runs Detect over the frame's default search window.
func (d *Detector) DetectFrame(f *frame.Frame) Region {
	return d.Detect(f, d.SearchWindow(f))
}

// scoreBand scores a w x h luma band. The returned rect is band-local.
func (d *Detector) scoreBand(band []float32, w, h int) Region {
	mag := mempool.GetFloat32(w * h)
	p := Profile(SobelInto(mag, band, w, h), w, h)
	mempool.PutFloat32(mag)
	cols := trimAxis(p.Cols, p.PeakCol, d.cfg.ColTrimFactor, d.cfg.MinWidthPct)
	rows := trimAxis(p.Rows, p.PeakRow, d.cfg.RowTrimFactor, d.cfg.MinHeightPct)
	return Region{
		Rect:  image.Rect(cols.lo, rows.lo, cols.lo+cols.n, rows.lo+rows.n),
		Score: p.Score(),
	}
}
