package emath

import(
	"math"

	"github.com/pkg/errors"
)

// DownsampleKernel is a 5x5 gaussian, sigma 1.2, summing to 1.
var DownsampleKernel = [5][5]float64{
	{0.007332, 0.020779, 0.029406, 0.020779, 0.007332},
	{0.020779, 0.058888, 0.083334, 0.058888, 0.020779},
	{0.029406, 0.083334, 0.117928, 0.083334, 0.029406},
	{0.020779, 0.058888, 0.083334, 0.058888, 0.020779},
	{0.007332, 0.020779, 0.029406, 0.020779, 0.007332},
}

// Sample maps output position (row,col) to source position
// out*scale+offset, and blends the four surrounding cells. Samples that
// would need a cell outside the grid come back as zero.
func Sample(g *FloatGrid, row, col int, scale, offset float64) float64 {
	sr := float64(row)*scale + offset
	sc := float64(col)*scale + offset
	r0 := int(math.Floor(sr))
	c0 := int(math.Floor(sc))
	dr := sr - float64(r0)
	dc := sc - float64(c0)

	r1, c1 := r0, c0
	if dr > 0 { r1++ }
	if dc > 0 { c1++ }
	if r0 < 0 || c0 < 0 || r1 >= g.Rows() || c1 >= g.Cols() {
		return 0
	}

	q00 := g.Get(r0, c0)
	q01 := g.Get(r0, c1)
	q10 := g.Get(r1, c0)
	q11 := g.Get(r1, c1)
	return q00*(1-dr)*(1-dc) + q10*dr*(1-dc) + q01*(1-dr)*dc + q11*dr*dc
}

// SampleClamped is the integer-ratio form of Sample used to bring a
// reduced grid back up to full size; row/reduction etc. The far
// neighbours are clamped to the last row and col, so it never drops out.
func SampleClamped(g *FloatGrid, row, col, reduction int) float64 {
	r0, c0 := row/reduction, col/reduction
	r1, c1 := r0+1, c0+1
	if r0 > g.Rows()-1 { r0 = g.Rows()-1 }
	if c0 > g.Cols()-1 { c0 = g.Cols()-1 }
	if r1 > g.Rows()-1 { r1 = g.Rows()-1 }
	if c1 > g.Cols()-1 { c1 = g.Cols()-1 }
	dr := float64(row%reduction) / float64(reduction)
	dc := float64(col%reduction) / float64(reduction)

	q00 := g.Get(r0, c0)
	q01 := g.Get(r0, c1)
	q10 := g.Get(r1, c0)
	q11 := g.Get(r1, c1)
	return q00*(1-dr)*(1-dc) + q10*dr*(1-dc) + q01*(1-dr)*dc + q11*dr*dc
}

// extra cells needed on the far edge so the last stride lands on real data
func downsamplePadding(n, rate int) int {
	resid := (n-1) % rate
	if resid == 0 {
		return 0
	}
	return rate - resid
}

// Downsample shrinks the grid by `rate` (2 or 3), smoothing with the
// 5x5 gaussian. Edges are replicated out by two cells, plus whatever the
// far edge needs to be a whole number of strides.
func Downsample(g FloatGrid, rate int) (FloatGrid, error) {
	if rate != 2 && rate != 3 {
		return FloatGrid{}, errors.Wrapf(ErrOutOfBounds, "downsample rate %d (must be 2 or 3)", rate)
	}
	if g.Rows() == 0 || g.Cols() == 0 {
		return FloatGrid{}, errors.Wrap(ErrOutOfBounds, "downsample of empty grid")
	}

	pr := g.Rows() + 4 + downsamplePadding(g.Rows(), rate)
	pc := g.Cols() + 4 + downsamplePadding(g.Cols(), rate)
	padded := NewFloatGrid(pr, pc)
	for r:=0; r<pr; r++ {
		sr := clampIndex(r-2, g.Rows())
		for c:=0; c<pc; c++ {
			padded.Set(r, c, g.Get(sr, clampIndex(c-2, g.Cols())))
		}
	}

	k := 2
	if rate == 2 { k = 3 }
	ret := NewFloatGrid((pr-k)/rate, (pc-k)/rate)

	for r:=0; r<ret.Rows(); r++ {
		for c:=0; c<ret.Cols(); c++ {
			rs, cs := rate*r, rate*c
			sum := 0.0
			for i:=0; i<5; i++ {
				row := padded.values[(rs+i)*pc+cs:]
				for j:=0; j<5; j++ {
					sum += DownsampleKernel[i][j] * row[j]
				}
			}
			ret.Set(r, c, sum)
		}
	}

	return ret, nil
}

func clampIndex(i, n int) int {
	if i < 0 { return 0 }
	if i >= n { return n-1 }
	return i
}

// DownsampleRGB downsamples each channel; the result is at dpi/rate.
func DownsampleRGB(g RGBGrid, rate int) (RGBGrid, error) {
	ret := g.WithSize(0, 0)
	for ch:=0; ch<3; ch++ {
		d, err := Downsample(g.Chans[ch], rate)
		if err != nil {
			return RGBGrid{}, err
		}
		ret.Chans[ch] = d
	}
	ret.DPI = g.DPI / rate
	return ret, nil
}

// Expand re-derives a square, odd sized kernel at a new resolution by
// bilinear sampling around its centre. The outermost ring of the result
// is left at zero.
func Expand(k FloatGrid, dpiIn, dpiOut float64) FloatGrid {
	n := k.Cols()
	newDist := 1 + 2*int((dpiOut/dpiIn)*float64(n-1)/2 + 1)
	ret := NewFloatGrid(newDist, newDist)
	centerDest := newDist / 2
	centerFrom := n / 2

	// .9999 stops a sample landing exactly on the next cell boundary
	off := func(i int) (int, float64) {
		o := .9999 * float64(i-centerDest) * dpiIn / dpiOut
		o0 := math.Floor(o)
		return int(o0) + centerFrom, o - o0
	}

	for i:=1; i<newDist-1; i++ {
		r0, dr := off(i)
		for ii:=1; ii<newDist-1; ii++ {
			c0, dc := off(ii)
			q00 := k.Get(r0,   c0)
			q01 := k.Get(r0,   c0+1)
			q10 := k.Get(r0+1, c0)
			q11 := k.Get(r0+1, c0+1)
			ret.Set(i, ii, q00*(1-dr)*(1-dc) + q10*dr*(1-dc) + q01*(1-dr)*dc + q11*dr*dc)
		}
	}
	return ret
}

// GlobalExtents finds the dark frame around a scan: from each edge in
// towards the middle, along the centre row and column, the first value
// below 0.5. Edges with no dark value stay at the grid edge.
func GlobalExtents(g *FloatGrid) Extents {
	b, r := g.Rows(), g.Cols()
	e := Extents{Top:0, Bottom:b-1, Left:0, Right:r-1}

	for i:=0; i<b/2; i++ {
		if g.Get(i, r/2) < .5 { e.Top = i; break }
	}
	for i:=b-1; i>b/2; i-- {
		if g.Get(i, r/2) < .5 { e.Bottom = i; break }
	}
	for i:=0; i<r/2; i++ {
		if g.Get(b/2, i) < .5 { e.Left = i; break }
	}
	for i:=r-1; i>r/2; i-- {
		if g.Get(b/2, i) < .5 { e.Right = i; break }
	}
	return e
}
