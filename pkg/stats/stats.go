package stats

import(
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// Statistics is a running accumulator over a stream of values.
type Statistics struct {
	n        int
	mean     float64
	m2       float64 // sum of squared deviations from the running mean
	min, max float64
}

func (s *Statistics)Add(v float64) {
	if s.n == 0 || v < s.min { s.min = v }
	if s.n == 0 || v > s.max { s.max = v }
	s.n++
	delta := v - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (v - s.mean)
}

func (s *Statistics)AddAll(vals ...float64) {
	for _, v := range vals {
		s.Add(v)
	}
}

func (s Statistics)Count() int     { return s.n }
func (s Statistics)Mean() float64  { return s.mean }
func (s Statistics)Min() float64   { return s.min }
func (s Statistics)Max() float64   { return s.max }

// Variance is the unbiased sample variance; zero with fewer than two values.
func (s Statistics)Variance() float64 {
	if s.n < 2 { return 0 }
	return s.m2 / float64(s.n-1)
}

func (s Statistics)Std() float64 { return math.Sqrt(s.Variance()) }

func (s Statistics)String() string {
	return fmt.Sprintf("n=%d mean=%.5f std=%.5f [%.5f,%.5f]", s.n, s.mean, s.Std(), s.min, s.max)
}

// RGBStatistics accumulates each channel independently.
type RGBStatistics [3]Statistics

func (s *RGBStatistics)Add(v emath.Vec3) {
	for ch:=0; ch<3; ch++ {
		s[ch].Add(v[ch])
	}
}

func (s RGBStatistics)Count() int { return s[0].Count() }

func (s RGBStatistics)Mean() emath.Vec3 {
	return emath.Vec3{s[0].Mean(), s[1].Mean(), s[2].Mean()}
}

func (s RGBStatistics)Std() emath.Vec3 {
	return emath.Vec3{s[0].Std(), s[1].Std(), s[2].Std()}
}

// MeanStd summarizes a slice in one go.
func MeanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 { return 0, 0 }
	if len(vals) == 1 { return vals[0], 0 }
	return stat.MeanStdDev(vals, nil)
}
