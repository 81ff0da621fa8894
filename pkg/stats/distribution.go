package stats

import(
	"fmt"

	"github.com/codahale/hdrhistogram"
)

// distributionScale is the resolution values are recorded at, 1ppm.
const distributionScale = 1e6

// A Distribution records values in [0, Max] to about three significant
// figures, for cheap quantile summaries over whole images.
type Distribution struct {
	Max     float64
	h       *hdrhistogram.Histogram
	clipped int
}

func NewDistribution(max float64) *Distribution {
	return &Distribution{
		Max: max,
		h:   hdrhistogram.New(1, int64(max*distributionScale), 3), // min must be >= 1, zeros still record
	}
}

// Record adds a value, clamped into [0, Max].
func (d *Distribution)Record(v float64) {
	if v < 0 {
		v = 0
		d.clipped++
	} else if v > d.Max {
		v = d.Max
		d.clipped++
	}
	d.h.RecordValue(int64(v * distributionScale))
}

func (d *Distribution)RecordAll(vals []float64) {
	for _, v := range vals {
		d.Record(v)
	}
}

func (d *Distribution)Count() int64 { return d.h.TotalCount() }

// Quantile takes q in [0,100].
func (d *Distribution)Quantile(q float64) float64 {
	return float64(d.h.ValueAtQuantile(q)) / distributionScale
}

func (d *Distribution)Mean() float64 { return d.h.Mean() / distributionScale }

func (d *Distribution)String() string {
	return fmt.Sprintf("n=%d mean=%.4f p1=%.4f p50=%.4f p99=%.4f max=%.4f (clipped %d)",
		d.Count(), d.Mean(), d.Quantile(1), d.Quantile(50), d.Quantile(99),
		float64(d.h.Max())/distributionScale, d.clipped)
}
