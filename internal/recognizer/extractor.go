package recognizer

import (
	"context"
	"image"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/cardscan/internal/names"
	"github.com/MeKo-Tech/cardscan/internal/preprocess"
)

// DefaultMinTextLen is the cleaned text length that ends the ladder early.
const DefaultMinTextLen = 5

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	Ladder     preprocess.Ladder
	Options    Options
	MinTextLen int
	// AttemptTimeout bounds each recognizer call. Zero means no per-attempt limit.
	AttemptTimeout time.Duration
	// OnAttempt, when set, is called after every recognizer call.
	OnAttempt func(v preprocess.Variant, took time.Duration, err error)
}

// DefaultExtractorConfig returns the default ladder, options and limits.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Ladder:         preprocess.DefaultLadder(),
		Options:        DefaultOptions(),
		MinTextLen:     DefaultMinTextLen,
		AttemptTimeout: 2 * time.Second,
	}
}

// Attempt is one preprocessing variant and what the recognizer read from it.
type Attempt struct {
	Variant    preprocess.Variant `json:"variant"`
	Image      *image.Gray        `json:"-"`
	RawText    string             `json:"raw_text"`
	Text       string             `json:"text"`
	Confidence float64            `json:"confidence"`
}

func (a Attempt) length() int { return utf8.RuneCountInString(a.Text) }

// better orders attempts by text length, then confidence.
func (a Attempt) better(b Attempt) bool {
	if la, lb := a.length(), b.length(); la != lb {
		return la > lb
	}
	return a.Confidence > b.Confidence
}

// Extractor walks a preprocessing ladder against a Recognizer.
type Extractor struct {
	rec    Recognizer
	cfg    ExtractorConfig
	logger *slog.Logger
}

// NewExtractor creates an extractor. Zero config fields take defaults.
func NewExtractor(rec Recognizer, cfg ExtractorConfig) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.Ladder.Validate() != nil {
		cfg.Ladder = def.Ladder
	}
	if cfg.MinTextLen <= 0 {
		cfg.MinTextLen = def.MinTextLen
	}
	return &Extractor{rec: rec, cfg: cfg, logger: slog.Default()}
}

// WithLogger sets the logger used for attempt diagnostics.
func (e *Extractor) WithLogger(l *slog.Logger) *Extractor {
	if l != nil {
		e.logger = l
	}
	return e
}

// Ladder returns the variants the extractor tries, in order.
func (e *Extractor) Ladder() preprocess.Ladder { return e.cfg.Ladder }

// Extract preprocesses band with each ladder variant in turn and recognizes
// it, stopping at the first attempt whose cleaned text reaches MinTextLen.
// Recognizer errors and timeouts count as empty text. The best attempt by
// text length, then confidence, is returned; false means no attempt
// produced any text.
func (e *Extractor) Extract(ctx context.Context, band image.Image) (Attempt, bool) {
	var (
		best  Attempt
		found bool
	)
	for _, v := range e.cfg.Ladder.Variants() {
		if ctx.Err() != nil {
			break
		}
		a, err := e.try(ctx, band, v)
		if err != nil {
			e.logger.Debug("Recognition attempt failed", "variant", v.String(), "error", err)
			continue
		}
		if a.Text == "" {
			continue
		}
		if !found || a.better(best) {
			best, found = a, true
		}
		if a.length() >= e.cfg.MinTextLen {
			break
		}
	}
	return best, found
}

func (e *Extractor) try(ctx context.Context, band image.Image, v preprocess.Variant) (Attempt, error) {
	img := preprocess.Enhance(band, v)

	actx := ctx
	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.rec.Recognize(actx, img, e.cfg.Options)
	if e.cfg.OnAttempt != nil {
		e.cfg.OnAttempt(v, time.Since(start), err)
	}
	if err != nil {
		return Attempt{}, err
	}

	return Attempt{
		Variant:    v,
		Image:      img,
		RawText:    res.Text,
		Text:       names.Display(res.Text),
		Confidence: ClampConfidence(res.Confidence),
	}, nil
}
