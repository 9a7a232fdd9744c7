package detector

import "math"

// Sobel returns the gradient magnitude of a row-major luma plane.
// Border pixels are left at zero.
func Sobel(plane []float32, w, h int) []float32 {
	return SobelInto(make([]float32, w*h), plane, w, h)
}

// SobelInto writes the gradient magnitude of plane into dst, which must hold
// w*h values, and returns dst. Every value of dst is overwritten.
func SobelInto(dst, plane []float32, w, h int) []float32 {
	out := dst[:w*h]
	if w < 3 || h < 3 {
		clear(out)
		return out
	}
	clear(out[:w])
	clear(out[(h-1)*w:])
	for y := 1; y < h-1; y++ {
		up := plane[(y-1)*w:]
		mid := plane[y*w:]
		dn := plane[(y+1)*w:]
		for x := 1; x < w-1; x++ {
			gx := -up[x-1] + up[x+1] - 2*mid[x-1] + 2*mid[x+1] - dn[x-1] + dn[x+1]
			gy := -up[x-1] - 2*up[x] - up[x+1] + dn[x-1] + 2*dn[x] + dn[x+1]
			out[y*w+x] = float32(math.Hypot(float64(gx), float64(gy)))
		}
		out[y*w] = 0
		out[y*w+w-1] = 0
	}
	return out
}

// EnergyProfile holds per-column and per-row summed edge energy of a band.
type EnergyProfile struct {
	Cols    []float64
	Rows    []float64
	Total   float64
	PeakCol float64
	PeakRow float64
}

// Profile sums the edge magnitude of a w x h band.
func Profile(mag []float32, w, h int) EnergyProfile {
	p := EnergyProfile{Cols: make([]float64, w), Rows: make([]float64, h)}
	for y := 0; y < h; y++ {
		row := mag[y*w : y*w+w]
		for x, v := range row {
			p.Cols[x] += float64(v)
			p.Rows[y] += float64(v)
		}
		p.Total += p.Rows[y]
	}
	for _, v := range p.Cols {
		p.PeakCol = math.Max(p.PeakCol, v)
	}
	for _, v := range p.Rows {
		p.PeakRow = math.Max(p.PeakRow, v)
	}
	return p
}

// Density is the mean edge energy per pixel.
func (p EnergyProfile) Density() float64 {
	return p.Total / (float64(len(p.Cols)*len(p.Rows)) + 1e-6)
}

// ColumnVariance is the population variance of the column sums.
func (p EnergyProfile) ColumnVariance() float64 {
	n := float64(len(p.Cols))
	if n == 0 {
		return 0
	}
	var mean float64
	for _, v := range p.Cols {
		mean += v
	}
	mean /= n
	var sum float64
	for _, v := range p.Cols {
		d := v - mean
		sum += d * d
	}
	return sum / n
}

// Score weights column variance over density so crisp vertical strokes win
// over evenly textured artwork.
func (p EnergyProfile) Score() float64 {
	return 0.7*p.ColumnVariance() + 0.3*p.Density()
}

// span is a half-open interval [lo, lo+n).
type span struct{ lo, n int }

// trimAxis drops low-energy entries from both ends of sums. If the trimmed
// length is below minPct of the full length the full extent is kept.
// The returned length is never zero for non-empty input.
func trimAxis(sums []float64, peak, factor, minPct float64) span {
	n := len(sums)
	if n == 0 {
		return span{}
	}
	cutoff := peak * factor
	lo, hi := 0, n-1
	for lo < hi && sums[lo] < cutoff {
		lo++
	}
	for hi > lo && sums[hi] < cutoff {
		hi--
	}
	trimmed := max(1, hi-lo+1)
	if trimmed < int(math.Floor(float64(n)*minPct)) {
		return span{0, n}
	}
	return span{lo, trimmed}
}
