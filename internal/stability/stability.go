// Package stability decides whether the title region has held still long
// enough to be worth reading.
package stability

import (
	"math"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/frame"
)

// State classifies a single sample.
type State string

const (
	Moving   State = "moving"
	LowLight State = "lowlight"
	Steady   State = "steady"
	Scanning State = "scanning"
)

// Config holds the gating thresholds.
type Config struct {
	SampleInterval    time.Duration
	StableWindow      time.Duration
	MovementThreshold float64
	MinContrast       float64
	// VectorCols x VectorRows is the luma grid a region is resampled onto.
	VectorCols int
	VectorRows int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		SampleInterval:    500 * time.Millisecond,
		StableWindow:      350 * time.Millisecond,
		MovementThreshold: 12.0,
		MinContrast:       6.0,
		VectorCols:        64,
		VectorRows:        12,
	}
}

// Reading is the outcome of one update.
type Reading struct {
	State    State         `json:"state"`
	Stable   time.Duration `json:"stable"`
	Delta    float64       `json:"delta"`
	Contrast float64       `json:"contrast"`
}

// Tracker accumulates stable time across samples. It is not safe for
// concurrent use; the owning session serializes access.
type Tracker struct {
	cfg    Config
	stable time.Duration
	last   []float32
}

// NewTracker creates a tracker with zeroed state.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = def.SampleInterval
	}
	if cfg.VectorCols <= 0 || cfg.VectorRows <= 0 {
		cfg.VectorCols, cfg.VectorRows = def.VectorCols, def.VectorRows
	}
	return &Tracker{cfg: cfg}
}

// Observe samples region of f and updates the tracker.
func (t *Tracker) Observe(f *frame.Frame, region detector.Region) Reading {
	return t.Update(frame.SampleVector(f.Image, region.Rect, t.cfg.VectorCols, t.cfg.VectorRows))
}

// Update classifies vec against the previous sample. Moving and low-light
// samples reset accumulated time; otherwise one sample interval is added.
// vec becomes the previous sample in every case.
func (t *Tracker) Update(vec []float32) Reading {
	r := Reading{
		Delta:    MeanAbsDiff(vec, t.last),
		Contrast: Contrast(vec),
	}
	t.last = vec

	switch {
	case r.Delta > t.cfg.MovementThreshold:
		t.stable = 0
		r.State = Moving
	case r.Contrast < t.cfg.MinContrast:
		t.stable = 0
		r.State = LowLight
	default:
		t.stable += t.cfg.SampleInterval
		r.State = Steady
		if t.stable >= t.cfg.StableWindow {
			r.State = Scanning
		}
	}
	r.Stable = t.stable
	return r
}

// Reset clears accumulated time and the previous sample.
func (t *Tracker) Reset() {
	t.stable = 0
	t.last = nil
}

// ResetStable zeroes accumulated time but keeps the previous sample, so
// movement is still measured against it.
func (t *Tracker) ResetStable() { t.stable = 0 }

// Stable returns the accumulated stable duration.
func (t *Tracker) Stable() time.Duration { return t.stable }

// MeanAbsDiff is the mean absolute difference of a and b, or +Inf when
// either is missing or their lengths differ.
func MeanAbsDiff(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum / float64(len(a))
}

// Contrast is the population standard deviation of vec.
func Contrast(vec []float32) float64 {
	if len(vec) == 0 {
		return 0
	}
	var mean float64
	for _, v := range vec {
		mean += float64(v)
	}
	mean /= float64(len(vec))
	var sum float64
	for _, v := range vec {
		d := float64(v) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vec)))
}
