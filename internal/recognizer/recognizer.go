package recognizer

import (
	"context"
	"errors"
	"image"
	"math"
)

// ErrNoBackend is returned by builds that link no recognition engine.
var ErrNoBackend = errors.New("recognizer: no text recognition backend linked; build with -tags=tesseract")

// DefaultWhitelist is the character set card titles are written in.
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz -'&!?:,./0123456789"

// Options are the hints passed with every image.
type Options struct {
	// Whitelist restricts the characters the engine may emit. Empty means no restriction.
	Whitelist string
	// SingleLine asks the engine to treat the image as one line of text.
	SingleLine bool
	// Language is an engine language code such as "eng".
	Language string
}

// DefaultOptions returns single-line English recognition over DefaultWhitelist.
func DefaultOptions() Options {
	return Options{Whitelist: DefaultWhitelist, SingleLine: true, Language: "eng"}
}

// Result is one recognition outcome.
type Result struct {
	Text string `json:"text"`
	// Confidence is in [0, 100].
	Confidence float64 `json:"confidence"`
}

// Recognizer reads text from an image. Implementations must tolerate being
// called several times per second.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, opts Options) (Result, error)
}

// Func adapts a function to the Recognizer interface.
type Func func(ctx context.Context, img image.Image, opts Options) (Result, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, img image.Image, opts Options) (Result, error) {
	return f(ctx, img, opts)
}

// Backend is a Recognizer that holds engine resources.
type Backend interface {
	Recognizer
	Close() error
}

// New returns the backend linked into this build.
func New(opts Options) (Backend, error) { return newDefaultBackend(opts) }

// ClampConfidence rounds c and bounds it to [0, 100]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, math.Round(c)))
}
