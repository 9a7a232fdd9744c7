// Package frame defines the raster snapshots the scanner samples and the
// pull-based sources that supply them.
package frame

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/utils"
)

// Frame is an immutable raster snapshot. Bounds always start at the origin.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
}

// New wraps img as a frame captured at t.
func New(img image.Image, t time.Time) *Frame {
	return &Frame{Image: utils.ToRGBA(img), CapturedAt: t}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.Image.Bounds().Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.Image.Bounds().Dy() }

// Bounds returns the frame rectangle.
func (f *Frame) Bounds() image.Rectangle { return f.Image.Bounds() }

// Source supplies frames on demand. Next returns (nil, nil) when no frame is
// currently available; callers skip the tick in that case.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
}

// StaticSource replays a fixed list of images, holding on the last one.
type StaticSource struct {
	mu     sync.Mutex
	images []image.Image
	pos    int
	loop   bool
	now    func() time.Time
}

// NewStaticSource creates a source over images. With loop set the sequence
// restarts after the last image instead of repeating it.
func NewStaticSource(loop bool, images ...image.Image) *StaticSource {
	return &StaticSource{images: images, loop: loop, now: time.Now}
}

// Next returns the next image as a frame.
func (s *StaticSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return nil, nil
	}
	img := s.images[s.pos]
	switch {
	case s.pos < len(s.images)-1:
		s.pos++
	case s.loop:
		s.pos = 0
	}
	return New(img, s.now()), nil
}

// LatestSource holds the most recently pushed frame. It backs remote feeds
// where a client captures frames itself and pushes them in.
type LatestSource struct {
	mu     sync.Mutex
	latest *Frame
	pushed int
}

// NewLatestSource creates an empty source.
func NewLatestSource() *LatestSource {
	return &LatestSource{}
}

// Push replaces the current frame.
func (s *LatestSource) Push(img image.Image) {
	f := New(img, time.Now())
	s.mu.Lock()
	s.latest = f
	s.pushed++
	s.mu.Unlock()
}

// Next returns the latest frame, or nil if nothing has been pushed yet.
func (s *LatestSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, nil
}

// Pushed reports how many frames have been pushed.
func (s *LatestSource) Pushed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushed
}
