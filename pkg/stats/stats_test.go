package stats

import(
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

func TestStatistics(t *testing.T) {
	vals := []float64{0.5, 0.7, 0.2, 0.9, 0.4, 0.65}

	var s Statistics
	assert.Equal(t, 0.0, s.Std())
	s.AddAll(vals...)

	mean, std := MeanStd(vals)
	assert.Equal(t, 6, s.Count())
	assert.InDelta(t, mean, s.Mean(), 1e-12)
	assert.InDelta(t, std, s.Std(), 1e-12)
	assert.Equal(t, 0.2, s.Min())
	assert.Equal(t, 0.9, s.Max())
}

func TestStatisticsSingleValue(t *testing.T) {
	var s Statistics
	s.Add(3)
	assert.Equal(t, 3.0, s.Mean())
	assert.Equal(t, 0.0, s.Std())

	m, sd := MeanStd([]float64{3})
	assert.Equal(t, 3.0, m)
	assert.Equal(t, 0.0, sd)
}

func TestRGBStatistics(t *testing.T) {
	var s RGBStatistics
	s.Add(emath.Vec3{1, 2, 3})
	s.Add(emath.Vec3{3, 4, 5})
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, emath.Vec3{2, 3, 4}, s.Mean())
	assert.InDelta(t, 1.41421356, s.Std()[1], 1e-6)
}

func TestDistribution(t *testing.T) {
	d := NewDistribution(2)
	for i:=0; i<=1000; i++ {
		d.Record(float64(i) / 1000)
	}
	d.Record(-1)
	d.Record(5)

	assert.Equal(t, int64(1003), d.Count())
	assert.InDelta(t, 0.5, d.Quantile(50), 0.005)
	assert.InDelta(t, 2.0, d.Quantile(100), 0.005)
	assert.Contains(t, d.String(), "clipped 2")
}
