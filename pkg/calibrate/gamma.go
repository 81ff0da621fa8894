package calibrate

import(
	"math"

	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
)

const(
	MinGamma       = 0.5
	MaxGamma       = 3.0
	MaxGammaSpread = 0.75
)

// SolveGammas works out the scanner gamma at each of the four gray steps
// below white, from the measured means of the five small squares.
//
// With no neutrals, each step is assumed to be the sRGB-ish relative
// colorimetric rendering of (255-40i)/255 at gamma 2.2. A single neutral
// is taken as the gamma itself. Two or more are CIE Y measurements of
// the squares, white first; steps beyond the last measurement reuse the
// previous gamma.
func SolveGammas(refl []float64, neutrals []float64) [4]float64 {
	var gamma [4]float64
	for i:=1; i<5; i++ {
		ratio := math.Log(refl[i] / refl[0])
		rgbx := float64(255 - 40*i) / 255

		switch {
		case len(neutrals) == 0:
			gamma[i-1] = math.Log(math.Pow(rgbx, 2.2)) / ratio
		case len(neutrals) == 1:
			gamma[i-1] = neutrals[0]
		case len(neutrals) > i:
			gamma[i-1] = math.Log(neutrals[i]/neutrals[0]) / ratio
		case i >= 2:
			gamma[i-1] = gamma[i-2]
		}
	}
	return gamma
}

// CheckGammas rejects scans whose gammas can't be right.
func CheckGammas(gamma [4]float64) error {
	min, max := gamma[0], gamma[0]
	for _, g := range gamma {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return reflfix.NewPlausibilityError("gammas too far out of range: %v", gamma)
		}
		if g < min { min = g }
		if g > max { max = g }
	}
	if min < MinGamma || max > MaxGamma || max-min > MaxGammaSpread {
		return reflfix.NewPlausibilityError("gammas too far out of range: %4.2f %4.2f %4.2f %4.2f",
			gamma[0], gamma[1], gamma[2], gamma[3])
	}
	return nil
}
