package preprocess

import "errors"

// Ladder is the ordered list of variants an extraction walks: the fast
// variants first, then fallbacks while the text stays too short.
type Ladder struct {
	Fast     []Variant `mapstructure:"fast" yaml:"fast" json:"fast"`
	Fallback []Variant `mapstructure:"fallback" yaml:"fallback" json:"fallback"`
}

// DefaultLadder returns one fast pass and four threshold/scale/polarity fallbacks.
func DefaultLadder() Ladder {
	return Ladder{
		Fast: []Variant{{Scale: 2, Threshold: 180}},
		Fallback: []Variant{
			{Scale: 2, Threshold: 165},
			{Scale: 2, Threshold: 195},
			{Scale: 2, Threshold: 180, Invert: true},
			{Scale: 2.5, Threshold: 180},
		},
	}
}

// Variants returns fast then fallback variants in order.
func (l Ladder) Variants() []Variant {
	out := make([]Variant, 0, len(l.Fast)+len(l.Fallback))
	out = append(out, l.Fast...)
	return append(out, l.Fallback...)
}

// Validate rejects empty ladders and non-positive scales.
func (l Ladder) Validate() error {
	if len(l.Fast)+len(l.Fallback) == 0 {
		return errors.New("preprocess: ladder has no variants")
	}
	for _, v := range l.Variants() {
		if v.Scale <= 0 || v.Scale > 8 {
			return errors.New("preprocess: variant scale must be in (0, 8]")
		}
	}
	return nil
}
