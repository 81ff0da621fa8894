package emath

import(
	"fmt"

	"github.com/pkg/errors"
)

// An RGBGrid is a 3 channel raster, one FloatGrid per channel, along
// with what we know about where it came from.
type RGBGrid struct {
	Chans   [3]FloatGrid

	DPI     int      // pixels per inch
	Gamma   float64  // exponent that takes the stored values back to the file encoding
	Bits16  bool     // decoded from (and by default re-encoded as) 16 bits/sample
	Profile []byte   // opaque ICC profile, passed through untouched
}

func NewRGBGrid(rows, cols, dpi int) RGBGrid {
	return RGBGrid{
		Chans: [3]FloatGrid{NewFloatGrid(rows, cols), NewFloatGrid(rows, cols), NewFloatGrid(rows, cols)},
		DPI:   dpi,
		Gamma: 1.0,
	}
}

// WithSize returns an empty grid of the given size, carrying over the
// metadata of this one.
func (g *RGBGrid)WithSize(rows, cols int) RGBGrid {
	ret := NewRGBGrid(rows, cols, g.DPI)
	ret.Gamma = g.Gamma
	ret.Bits16 = g.Bits16
	ret.Profile = g.Profile
	return ret
}

func (g *RGBGrid)Rows() int                   { return g.Chans[0].Rows() }
func (g *RGBGrid)Cols() int                   { return g.Chans[0].Cols() }
func (g *RGBGrid)Get(r, c, ch int) float64    { return g.Chans[ch].Get(r, c) }
func (g *RGBGrid)Set(r, c, ch int, v float64) { g.Chans[ch].Set(r, c, v) }

func (g *RGBGrid)At(r, c int) Vec3 {
	return Vec3{g.Chans[0].Get(r,c), g.Chans[1].Get(r,c), g.Chans[2].Get(r,c)}
}

func (g *RGBGrid)SetAt(r, c int, v Vec3) {
	for ch:=0; ch<3; ch++ {
		g.Chans[ch].Set(r, c, v[ch])
	}
}

func (g *RGBGrid)String() string {
	return fmt.Sprintf("rgb[%dx%d @%ddpi, gamma %.2f, 16bit:%v]", g.Rows(), g.Cols(), g.DPI, g.Gamma, g.Bits16)
}

func (g *RGBGrid)Copy() RGBGrid {
	ret := *g
	for ch:=0; ch<3; ch++ {
		ret.Chans[ch] = g.Chans[ch].Copy()
	}
	return ret
}

func (g *RGBGrid)Fill(v Vec3) {
	for ch:=0; ch<3; ch++ {
		g.Chans[ch].Fill(v[ch])
	}
}

func (g *RGBGrid)Scale(f float64) {
	for ch:=0; ch<3; ch++ {
		g.Chans[ch].Scale(f)
	}
}

func (g *RGBGrid)Pow(p float64) {
	for ch:=0; ch<3; ch++ {
		g.Chans[ch].Pow(p)
	}
}

func (g *RGBGrid)Insert(from RGBGrid, row, col int) error {
	for ch:=0; ch<3; ch++ {
		if err := g.Chans[ch].Insert(from.Chans[ch], row, col); err != nil {
			return err
		}
	}
	return nil
}

// SubGrid returns rows rs..re and cols cs..ce, ends included.
func (g *RGBGrid)SubGrid(rs, re, cs, ce int) (RGBGrid, error) {
	ret := g.WithSize(0, 0)
	for ch:=0; ch<3; ch++ {
		sub, err := g.Chans[ch].Clip(Extents{Top:rs, Bottom:re, Left:cs, Right:ce})
		if err != nil {
			return RGBGrid{}, errors.Wrap(err, "SubGrid")
		}
		ret.Chans[ch] = sub
	}
	return ret, nil
}

// ChangeDPI resamples to a new resolution by picking the nearest
// source pixel at or before each output position. It may drop the
// last row/col, never reads past the edge.
func (g *RGBGrid)ChangeDPI(newDPI int) RGBGrid {
	step := float64(g.DPI) / float64(newDPI)
	maxlen := func(n int) int {
		for i:=0; ; i++ {
			if int(step*float64(i)) >= n {
				return i-1
			}
		}
	}

	ret := g.WithSize(maxlen(g.Rows()), maxlen(g.Cols()))
	ret.DPI = newDPI
	for ch:=0; ch<3; ch++ {
		for r:=0; r<ret.Rows(); r++ {
			for c:=0; c<ret.Cols(); c++ {
				ret.Chans[ch].Set(r, c, g.Chans[ch].Get(int(step*float64(r)), int(step*float64(c))))
			}
		}
	}
	return ret
}
