package detector

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardFrame(title string) (*frame.Frame, testutil.CardConfig) {
	cfg := testutil.DefaultCardConfig(title)
	return frame.New(testutil.CardFrame(cfg), time.Time{}), cfg
}

func TestSobel_VerticalEdge(t *testing.T) {
	w, h := 6, 4
	plane := make([]float32, w*h)
	for y := range h {
		for x := 3; x < w; x++ {
			plane[y*w+x] = 255
		}
	}
	mag := Sobel(plane, w, h)

	assert.Zero(t, mag[0], "border stays zero")
	assert.Zero(t, mag[1*w+1], "uniform neighbourhood has no gradient")
	assert.InDelta(t, 1020.0, mag[1*w+2], 0.01)
	assert.InDelta(t, 1020.0, mag[1*w+3], 0.01)
	assert.Zero(t, mag[1*w+5])
}

func TestSobel_TooSmall(t *testing.T) {
	mag := Sobel([]float32{1, 2, 3, 4}, 2, 2)
	assert.Equal(t, []float32{0, 0, 0, 0}, mag)
}

func TestSobelInto_OverwritesDirtyBuffer(t *testing.T) {
	w, h := 6, 4
	plane := make([]float32, w*h)
	for y := range h {
		for x := 3; x < w; x++ {
			plane[y*w+x] = 255
		}
	}
	dirty := make([]float32, w*h+10)
	for i := range dirty {
		dirty[i] = -1
	}

	got := SobelInto(dirty, plane, w, h)
	require.Len(t, got, w*h)
	assert.Equal(t, Sobel(plane, w, h), got)
}

func TestProfile_ScoreComponents(t *testing.T) {
	// Two columns of energy 10 and 0 over two rows.
	mag := []float32{10, 0, 10, 0}
	p := Profile(mag, 2, 2)

	assert.Equal(t, []float64{20, 0}, p.Cols)
	assert.Equal(t, []float64{10, 10}, p.Rows)
	assert.InDelta(t, 20.0, p.Total, 1e-9)
	assert.InDelta(t, 100.0, p.ColumnVariance(), 1e-9)
	assert.InDelta(t, 5.0, p.Density(), 1e-5)
	assert.InDelta(t, 0.7*100+0.3*5, p.Score(), 1e-5)
}

func TestTrimAxis(t *testing.T) {
	tests := []struct {
		name   string
		sums   []float64
		factor float64
		minPct float64
		want   span
	}{
		{"trims low ends", []float64{0, 1, 10, 10, 10, 10, 1, 0}, 0.35, 0.25, span{2, 4}},
		{"falls back when over-trimmed", []float64{0, 0, 10, 0, 0, 0}, 0.35, 0.55, span{0, 6}},
		{"uniform keeps everything", []float64{5, 5, 5}, 0.35, 0.5, span{0, 3}},
		{"all zero keeps everything", []float64{0, 0, 0, 0}, 0.35, 0.5, span{0, 4}},
		{"single peak with no minimum", []float64{0, 9, 0}, 0.5, 0, span{1, 1}},
		{"empty", nil, 0.3, 0.5, span{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var peak float64
			for _, v := range tt.sums {
				peak = math.Max(peak, v)
			}
			assert.Equal(t, tt.want, trimAxis(tt.sums, peak, tt.factor, tt.minPct))
		})
	}
}

func TestDetect_FlatFrameIsTooEmpty(t *testing.T) {
	d := New(DefaultConfig())
	f := frame.New(testutil.FlatFrame(420, 600, color.RGBA{R: 128, G: 128, B: 128, A: 255}), time.Time{})

	r := d.DetectFrame(f)
	assert.True(t, r.TooEmpty)
	assert.Zero(t, r.Score)
	assert.False(t, r.Rect.Empty())
}

func TestDetect_FindsTitleBand(t *testing.T) {
	d := New(DefaultConfig())
	f, cfg := cardFrame("Dark Magician")

	window := d.SearchWindow(f)
	r := d.Detect(f, window)

	require.False(t, r.TooEmpty)
	assert.Greater(t, r.Score, DefaultConfig().MinBandEnergy)
	assert.True(t, r.Rect.In(window), "region %v outside window %v", r.Rect, window)

	text := testutil.TextImage(cfg.Title, cfg.Card, cfg.Ink, cfg.TitleScale)
	titleRect := text.Bounds().Add(cfg.TitleOrigin)
	assert.True(t, r.Rect.Overlaps(titleRect), "region %v misses title %v", r.Rect, titleRect)
}

func TestDetect_DegenerateWindow(t *testing.T) {
	d := New(DefaultConfig())
	f, _ := cardFrame("Kuriboh")

	// Window shorter than every band height: nothing can be scored.
	window := image.Rect(50, 100, 300, 105)
	r := d.Detect(f, window)

	assert.True(t, r.TooEmpty)
	assert.Zero(t, r.Score)
	assert.Equal(t, 50, r.Rect.Min.X)
	assert.Equal(t, 100, r.Rect.Min.Y)
	assert.True(t, r.Rect.In(window), "fallback %v leaves window %v", r.Rect, window)
	assert.Equal(t, window, r.Rect, "a window shorter than the default band is used whole")

	// Just below the smallest band: the default band height is clipped too.
	almost := image.Rect(50, 100, 300, 100+int(math.Floor(600*0.055))-1)
	r = d.Detect(f, almost)
	assert.True(t, r.TooEmpty)
	assert.Equal(t, almost, r.Rect)

	r = d.Detect(f, image.Rect(1000, 1000, 1100, 1100))
	assert.True(t, r.TooEmpty)
	assert.False(t, r.Rect.Empty())
}

func TestDetect_IsDeterministic(t *testing.T) {
	d := New(DefaultConfig())
	f, _ := cardFrame("Summoned Skull")
	assert.Equal(t, d.DetectFrame(f), d.DetectFrame(f))
}

func TestSearchWindow_DefaultGeometry(t *testing.T) {
	d := New(DefaultConfig())
	f, _ := cardFrame("Dark Magician")

	w := d.SearchWindow(f)
	assert.Equal(t, int(math.Floor(600*0.14)), w.Min.Y)
	assert.Equal(t, int(math.Floor(600*0.24)), w.Max.Y)
	assert.True(t, w.In(f.Bounds()))
	assert.Greater(t, w.Dx(), 420/2)
}

func TestActiveSpan_FallsBackToFullWidth(t *testing.T) {
	// A narrow bright strip covers less than half the frame.
	img := testutil.FlatFrame(200, 100, color.RGBA{A: 255})
	for y := range 100 {
		for x := 90; x < 110; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	x, w := ActiveSpan(frame.New(img, time.Time{}))
	assert.Equal(t, 0, x)
	assert.Equal(t, 200, w)
}

func TestActiveSpan_FindsWideCard(t *testing.T) {
	img := testutil.FlatFrame(200, 100, color.RGBA{A: 255})
	for y := range 100 {
		for x := 30; x < 170; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	x, w := ActiveSpan(frame.New(img, time.Time{}))
	assert.Equal(t, 28, x)
	assert.Equal(t, 144, w)
}

func TestNew_InvalidConfigFallsBack(t *testing.T) {
	d := New(Config{})
	assert.Equal(t, DefaultConfig().BandHeights, d.Config().BandHeights)
}

func TestRenderOverlay(t *testing.T) {
	d := New(DefaultConfig())
	f, _ := cardFrame("Dark Magician")
	window := d.SearchWindow(f)
	r := d.Detect(f, window)

	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	out := RenderOverlay(f, window, r, red, green)

	assert.Equal(t, red, out.RGBAAt(r.Rect.Min.X, r.Rect.Min.Y))
	assert.Equal(t, f.Image.RGBAAt(0, 0), out.RGBAAt(0, 0))
}
