package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CardConfig describes a synthetic camera frame showing a single card.
type CardConfig struct {
	Title      string
	Width      int
	Height     int
	TitleScale int
	Background color.RGBA
	Card       color.RGBA
	Ink        color.RGBA
	// TitleOrigin is the top-left of the rendered title in frame pixels.
	TitleOrigin image.Point
}

// DefaultCardConfig returns a 420x600 frame with the title placed inside the
// detector's default search window.
func DefaultCardConfig(title string) CardConfig {
	return CardConfig{
		Title:       title,
		Width:       420,
		Height:      600,
		TitleScale:  3,
		Background:  color.RGBA{R: 25, G: 25, B: 30, A: 255},
		Card:        color.RGBA{R: 228, G: 222, B: 210, A: 255},
		Ink:         color.RGBA{R: 10, G: 10, B: 10, A: 255},
		TitleOrigin: image.Pt(60, 96),
	}
}

// CardFrame renders the configured card: dark surround, bright card body,
// a scaled title line and a mid-tone artwork box below it.
func CardFrame(cfg CardConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	cardRect := image.Rect(cfg.Width*4/100, 0, cfg.Width*96/100, cfg.Height)
	draw.Draw(img, cardRect, &image.Uniform{cfg.Card}, image.Point{}, draw.Src)

	art := image.Rect(cfg.Width*12/100, cfg.Height*30/100, cfg.Width*88/100, cfg.Height*70/100)
	for y := art.Min.Y; y < art.Max.Y; y++ {
		for x := art.Min.X; x < art.Max.X; x++ {
			v := uint8(90 + (x+y)%40)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v / 2, B: 140, A: 255})
		}
	}

	if cfg.Title != "" {
		text := TextImage(cfg.Title, cfg.Card, cfg.Ink, cfg.TitleScale)
		dst := text.Bounds().Add(cfg.TitleOrigin)
		draw.Draw(img, dst, text, image.Point{}, draw.Src)
	}
	return img
}

// TextImage renders s with basicfont on bg, scaled by an integer factor.
func TextImage(s string, bg, ink color.Color, scale int) *image.RGBA {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil() + 2
	h := face.Metrics().Height.Ceil() + 2

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  &image.Uniform{ink},
		Face: face,
		Dot:  fixed.P(1, 1+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	if scale <= 1 {
		return small
	}
	scaled := imaging.Resize(small, w*scale, h*scale, imaging.NearestNeighbor)
	out := image.NewRGBA(scaled.Bounds())
	draw.Draw(out, out.Bounds(), scaled, image.Point{}, draw.Src)
	return out
}

// FlatFrame returns a uniformly coloured frame.
func FlatFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// SaveImage writes img to path as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	file, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()
	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteFrames saves frames as frame_000.png, frame_001.png, ... in dir.
func WriteFrames(t *testing.T, dir string, frames ...image.Image) []string {
	t.Helper()

	paths := make([]string, 0, len(frames))
	for i, f := range frames {
		p := filepath.Join(dir, "frame_"+pad3(i)+".png")
		SaveImage(t, f, p)
		paths = append(paths, p)
	}
	return paths
}

func pad3(i int) string {
	s := []byte{'0', '0', '0'}
	for pos := 2; pos >= 0 && i > 0; pos-- {
		s[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(s)
}
