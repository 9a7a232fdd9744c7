//go:build tesseract

package recognizer

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/MeKo-Tech/cardscan/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// tesseractBackend serializes access to a single gosseract client.
type tesseractBackend struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func newDefaultBackend(opts Options) (Backend, error) {
	client := gosseract.NewClient()

	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Card titles are proper nouns; dictionary correction only hurts.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &tesseractBackend{client: client}, nil
}

func (b *tesseractBackend) Recognize(ctx context.Context, img image.Image, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mode := gosseract.PSM_AUTO
	if opts.SingleLine {
		mode = gosseract.PSM_SINGLE_LINE
	}
	if err := b.client.SetPageSegMode(mode); err != nil {
		return Result{}, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := b.client.SetWhitelist(opts.Whitelist); err != nil {
		return Result{}, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := b.client.SetImageFromBytes(data); err != nil {
		return Result{}, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := b.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	words := make([]string, 0, len(boxes))
	var conf float64
	for _, box := range boxes {
		w := strings.TrimSpace(box.Word)
		if w == "" {
			continue
		}
		words = append(words, w)
		conf += box.Confidence
	}
	if len(words) == 0 {
		return Result{}, nil
	}
	return Result{
		Text:       strings.Join(words, " "),
		Confidence: ClampConfidence(conf / float64(len(words))),
	}, nil
}

func (b *tesseractBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}
