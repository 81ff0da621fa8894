package ecolor

import(
	"fmt"
	"image/color"
	"math"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// A LinearRGB is a scanner reading mapped into linear light, where 1.0
// is the brightest value the file encoding could hold.
type LinearRGB struct {
	hdrcolor.RGB // This field implements color.Color and hdrcolor.Color interfaces
}

func NewLinearRGB(v emath.Vec3) LinearRGB {
	return LinearRGB{RGB: hdrcolor.RGB{R: v[0], G: v[1], B: v[2]}}
}

func (lc LinearRGB)Vec3() emath.Vec3 { return emath.Vec3{lc.RGB.R, lc.RGB.G, lc.RGB.B} }

func (lc LinearRGB)String() string {
	return fmt.Sprintf("[%12.10f, %12.10f, %12.10f]", lc.RGB.R, lc.RGB.G, lc.RGB.B)
}

// A GammaTable linearizes integer samples: v/max raised to gamma.
type GammaTable struct {
	Gamma float64
	Bits  int
	lut   []float64
}

func NewGammaTable(gamma float64, bits int) GammaTable {
	n := 1 << uint(bits)
	t := GammaTable{Gamma: gamma, Bits: bits, lut: make([]float64, n)}
	for i:=0; i<n; i++ {
		t.lut[i] = math.Pow(float64(i)/float64(n-1), gamma)
	}
	return t
}

func (t GammaTable)Linear(v uint32) float64 { return t.lut[v] }

// LinearRGB treats the colour's RGBA() channels as [0, 0xFFFF]; the
// table must be a 16 bit one.
func (t GammaTable)LinearRGB(col color.Color) LinearRGB {
	r, g, b, _ := col.RGBA()
	return LinearRGB{RGB: hdrcolor.RGB{R: t.lut[r], G: t.lut[g], B: t.lut[b]}}
}

// Encode16 clamps a linear value and re-applies the file gamma.
func Encode16(v, invGamma float64) uint16 {
	return uint16(math.Pow(emath.Clamp01(v), invGamma)*65535 + 0.5)
}

// A Dither8 quantizes a run of values to 8 bits, carrying the rounding
// error along so that smooth gradients don't band. Reset at the start of
// each row.
type Dither8 struct {
	InvGamma float64
	resid    float64
}

func (d *Dither8)Reset() { d.resid = 0 }

func (d *Dither8)Encode(v float64) uint8 {
	tmp := 255 * math.Pow(math.Max(v, 0), d.InvGamma)
	if tmp > 255 { tmp = 255 }
	out := int(tmp + .5)
	d.resid += tmp - float64(out)
	if d.resid > .5 && out < 255 {
		d.resid -= 1
		out++
	} else if d.resid < -.5 && out > 0 {
		d.resid += 1
		out--
	}
	return uint8(out)
}
