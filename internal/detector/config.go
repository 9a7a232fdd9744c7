package detector

import (
	"errors"
	"fmt"
)

// Config holds the band sweep and trimming tunables.
// Fractions are relative to frame height unless noted otherwise.
type Config struct {
	// BandHeights are the candidate band heights, tried in order.
	BandHeights []float64
	// SearchTop and SearchBottom bound the vertical sweep.
	SearchTop    float64
	SearchBottom float64
	// VertStep is the sweep step; MinVertStepPx is its floor in pixels.
	VertStep      float64
	MinVertStepPx int

	// HorizInset is a fraction of the active card width trimmed from each side.
	HorizInset    float64
	HorizOffsetPx int
	ExtraLeftPx   int

	// MinBandEnergy is the score under which a band is flagged too empty.
	MinBandEnergy float64

	// Trim cutoffs as fractions of the column/row energy peak.
	ColTrimFactor float64
	RowTrimFactor float64
	// Trimmed extent below these fractions of the band falls back to the full band.
	MinWidthPct  float64
	MinHeightPct float64
}

// DefaultConfig returns the tuned defaults for portrait card frames.
func DefaultConfig() Config {
	return Config{
		BandHeights:   []float64{0.055, 0.065, 0.075},
		SearchTop:     0.14,
		SearchBottom:  0.24,
		VertStep:      0.018,
		MinVertStepPx: 6,
		HorizInset:    0.165,
		HorizOffsetPx: 35,
		ExtraLeftPx:   72,
		MinBandEnergy: 0.35,
		ColTrimFactor: 0.35,
		RowTrimFactor: 0.28,
		MinWidthPct:   0.55,
		MinHeightPct:  0.50,
	}
}

// Validate reports configuration values that would make the sweep meaningless.
func (c Config) Validate() error {
	if len(c.BandHeights) == 0 {
		return errors.New("detector: at least one band height is required")
	}
	for _, h := range c.BandHeights {
		if h <= 0 || h > 1 {
			return fmt.Errorf("detector: band height %.3f out of range (0, 1]", h)
		}
	}
	if c.SearchTop < 0 || c.SearchBottom > 1 || c.SearchTop >= c.SearchBottom {
		return fmt.Errorf("detector: invalid search range [%.3f, %.3f]", c.SearchTop, c.SearchBottom)
	}
	if c.HorizInset < 0 || c.HorizInset >= 0.5 {
		return fmt.Errorf("detector: horizontal inset %.3f out of range [0, 0.5)", c.HorizInset)
	}
	for name, v := range map[string]float64{
		"col_trim_factor": c.ColTrimFactor,
		"row_trim_factor": c.RowTrimFactor,
		"min_width_pct":   c.MinWidthPct,
		"min_height_pct":  c.MinHeightPct,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("detector: %s %.3f out of range [0, 1]", name, v)
		}
	}
	return nil
}

// defaultBandHeight is the height fraction used for the fallback rectangle.
func (c Config) defaultBandHeight() float64 {
	if len(c.BandHeights) > 1 {
		return c.BandHeights[1]
	}
	if len(c.BandHeights) == 1 {
		return c.BandHeights[0]
	}
	return 0.065
}
