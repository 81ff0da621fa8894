package emath

import "math"

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// Used for debug images only; scanner data carries its own gamma.
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}

func Clamp01(f float64) float64 {
	if f < 0 { return 0 }
	if f > 1 { return 1 }
	return f
}

// InchToPix converts a distance in inches to whole pixels, rounding.
func InchToPix(dpi, inches float64) int {
	return int(dpi*inches + 0.5)
}
