package stability

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// textured returns a vector with high contrast around base.
func textured(n int, base float32) []float32 {
	v := make([]float32, n)
	for i := range v {
		if i%2 == 0 {
			v[i] = base + 40
		} else {
			v[i] = base - 40
		}
	}
	return v
}

func flat(n int, val float32) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = val
	}
	return v
}

func TestMeanAbsDiff(t *testing.T) {
	assert.True(t, math.IsInf(MeanAbsDiff([]float32{1}, nil), 1))
	assert.True(t, math.IsInf(MeanAbsDiff([]float32{1, 2}, []float32{1}), 1))
	assert.InDelta(t, 0.0, MeanAbsDiff([]float32{1, 2}, []float32{1, 2}), 1e-9)
	assert.InDelta(t, 2.0, MeanAbsDiff([]float32{1, 5}, []float32{3, 3}), 1e-9)
}

func TestContrast(t *testing.T) {
	assert.Zero(t, Contrast(nil))
	assert.Zero(t, Contrast(flat(10, 100)))
	assert.InDelta(t, 40.0, Contrast(textured(10, 100)), 1e-6)
}

func TestTracker_FirstSampleIsMoving(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	r := tr.Update(textured(16, 120))
	assert.Equal(t, Moving, r.State)
	assert.True(t, math.IsInf(r.Delta, 1))
	assert.Zero(t, r.Stable)
}

func TestTracker_IdenticalSamplesAccumulateOneInterval(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(cfg)
	v := textured(16, 120)

	tr.Update(v)
	r := tr.Update(v)
	assert.InDelta(t, 0.0, r.Delta, 1e-9)
	assert.Greater(t, r.Contrast, cfg.MinContrast)
	assert.Equal(t, cfg.SampleInterval, r.Stable)

	before := tr.Stable()
	r = tr.Update(v)
	assert.Equal(t, before+cfg.SampleInterval, r.Stable)
}

func TestTracker_ScanningAfterStableWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleInterval = 100 * time.Millisecond
	cfg.StableWindow = 300 * time.Millisecond
	tr := NewTracker(cfg)
	v := textured(8, 100)

	tr.Update(v)
	assert.Equal(t, Steady, tr.Update(v).State)
	assert.Equal(t, Steady, tr.Update(v).State)
	assert.Equal(t, Scanning, tr.Update(v).State)
}

func TestTracker_DefaultsScanOnFirstSteadySample(t *testing.T) {
	// 500ms interval already exceeds the 350ms window.
	tr := NewTracker(DefaultConfig())
	v := textured(8, 100)
	tr.Update(v)
	assert.Equal(t, Scanning, tr.Update(v).State)
}

func TestTracker_LowLight(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	v := textured(8, 100)
	tr.Update(v)
	tr.Update(v)
	tr.Update(flat(8, 100))

	r := tr.Update(flat(8, 100))
	assert.Equal(t, LowLight, r.State)
	assert.Zero(t, r.Stable)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	v := textured(8, 100)
	tr.Update(v)
	tr.Update(v)
	assert.Positive(t, tr.Stable())

	tr.Reset()
	assert.Zero(t, tr.Stable())
	assert.Equal(t, Moving, tr.Update(v).State, "previous vector was cleared")
}

func TestTracker_ResetStableKeepsPreviousSample(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	v := textured(8, 100)
	tr.Update(v)
	tr.Update(v)
	assert.Positive(t, tr.Stable())

	tr.ResetStable()
	assert.Zero(t, tr.Stable())
	r := tr.Update(v)
	assert.NotEqual(t, Moving, r.State, "previous vector survives")
	assert.Equal(t, DefaultConfig().SampleInterval, r.Stable)
}

func TestTracker_MotionOrLowLightResets(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("accumulation resets on moving or lowlight regardless of history", prop.ForAll(
		func(steadyTicks int, jump float64, lowLight bool) bool {
			tr := NewTracker(DefaultConfig())
			v := textured(16, 120)
			for range steadyTicks + 1 {
				tr.Update(v)
			}

			var next []float32
			if lowLight {
				next = flat(16, 120)
			} else {
				next = textured(16, 120+float32(jump))
			}
			r := tr.Update(next)
			if r.State != Moving && r.State != LowLight {
				return false
			}
			return r.Stable == 0 && tr.Stable() == 0
		},
		gen.IntRange(0, 20),
		gen.Float64Range(13, 100),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
