package calibrate

import(
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
)

func TestSolveGammas(t *testing.T) {
	refl := make([]float64, 5)
	refl[0] = 0.8
	for i:=1; i<5; i++ {
		refl[i] = 0.8 * math.Pow(rgbx(i), 2.2/1.8)
	}

	// Relative colorimetric default
	for _, g := range SolveGammas(refl, nil) {
		assert.InDelta(t, 1.8, g, 1e-9)
	}

	// A given gamma
	assert.Equal(t, [4]float64{2.1, 2.1, 2.1, 2.1}, SolveGammas(refl, []float64{2.1}))

	// Measured Y for white and the first two steps; the rest back fill
	y := []float64{90, 90 * math.Pow(rgbx(1), 2.0), 90 * math.Pow(rgbx(2), 2.0)}
	got := SolveGammas(refl, y)
	want := 2.0 * 1.8 / 2.2
	assert.InDelta(t, want, got[0], 1e-9)
	assert.InDelta(t, want, got[1], 1e-9)
	assert.Equal(t, got[1], got[2])
	assert.Equal(t, got[1], got[3])
}

func TestCheckGammas(t *testing.T) {
	tests := []struct{
		g  [4]float64
		ok bool
	}{
		{[4]float64{1.8, 1.8, 1.9, 2.0}, true},
		{[4]float64{0.5, 0.6, 0.7, 1.25}, true},
		{[4]float64{0.49, 0.6, 0.7, 0.8}, false},
		{[4]float64{2.5, 2.6, 2.9, 3.01}, false},
		{[4]float64{1.0, 1.2, 1.5, 1.76}, false},
		{[4]float64{1.0, math.NaN(), 1, 1}, false},
		{[4]float64{4, 4, 4, 4}, false},
	}
	for _, tst := range tests {
		err := CheckGammas(tst.g)
		if tst.ok {
			assert.NoError(t, err, "%v", tst.g)
		} else {
			assert.True(t, reflfix.IsKind(err, reflfix.ErrPlausibility), "%v", tst.g)
			assert.Contains(t, err.Error(), "gammas too far out of range")
		}
	}
}

func TestSmoothStrip(t *testing.T) {
	// Flat at base: log(1+0) everywhere
	flat := make([]float64, 600)
	for i := range flat { flat[i] = 0.8 }
	got, err := SmoothStrip(flat, 0.8)
	require.NoError(t, err)
	require.Len(t, got, 11)
	for _, v := range got {
		assert.InDelta(t, 0.8, v, 1e-12)
	}

	// Rising towards the middle, symmetric
	rising := make([]float64, 600)
	for i := range rising {
		d := i
		if 599-i < d { d = 599-i }
		rising[i] = 0.8 + 0.05*(1 - math.Exp(-float64(d)/60))
	}
	got, err = SmoothStrip(rising, 0.8)
	require.NoError(t, err)
	for i:=2; i<11; i++ {
		assert.Greater(t, got[i], got[i-1])
	}

	// Short strips pad out with zeros
	got, err = SmoothStrip(flat[:100], 0.8)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[10])

	_, err = SmoothStrip(flat[:30], 0.8)
	assert.True(t, reflfix.IsKind(err, reflfix.ErrPlausibility))
}

func TestDifferences(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 0, 0}, Differences([]float64{0, 1, 3, 2, 5}))
	assert.Equal(t, []float64{0, 0}, Differences([]float64{1, 1, 3}))
}

func TestAlignAndBuildKernel(t *testing.T) {
	h := []float64{0, 4, 7, 9, 10, 10.5, 10.75, 10.875, 10.9, 10.91, 10.915}
	v := make([]float64, len(h))
	for i := range h { v[i] = 2 * h[i] }

	hd, vd, err := AlignSteps(h, v)
	require.NoError(t, err)
	hs, vs := 0.0, 0.0
	for i := range hd { hs += hd[i]; vs += vd[i] }
	assert.InDelta(t, hs, vs, 1e-9)

	k, err := BuildKernel(hd, vd)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, k.Sum(), 1e-12)
	assert.InDelta(t, k.Get(0, 0), k.Get(18, 18), 1e-15)
	assert.InDelta(t, k.Get(3, 9), k.Get(15, 9), 1e-15)
	_, max := k.MinMax()
	assert.Equal(t, max, k.Get(9, 9))

	_, _, err = AlignSteps([]float64{1, 1, 1}, []float64{2, 1, 0})
	assert.True(t, reflfix.IsKind(err, reflfix.ErrPlausibility))

	_, err = BuildKernel(make([]float64, 10), make([]float64, 10))
	assert.True(t, reflfix.IsKind(err, reflfix.ErrPlausibility))
}

func TestFindEdges(t *testing.T) {
	strip := []float64{.1, .1, .9, .9, .9, .1, .1}
	d, dd := findEdges(strip)
	assert.Equal(t, 2, d)
	assert.Equal(t, 5, dd)

	d, dd = findEdges([]float64{.1, .9, .9})
	assert.Equal(t, 1, d)
	assert.Equal(t, 3, dd)
}

func TestRingDistribution(t *testing.T) {
	// Each ring holds its own distance from the edge
	g := emath.NewFloatGrid(12, 10)
	for r:=0; r<12; r++ {
		for c:=0; c<10; c++ {
			d := r
			for _, x := range []int{11-r, c, 9-c} {
				if x < d { d = x }
			}
			g.Set(r, c, float64(d))
		}
	}
	rd, err := ringDistribution(&g, emath.Extents{Top:0, Bottom:11, Left:0, Right:9})
	require.NoError(t, err)
	require.Len(t, rd.Slice, 3)
	for off:=0; off<3; off++ {
		assert.InDelta(t, float64(off), rd.Slice[off], 1e-12)
		assert.Equal(t, 2*(12-2*off)+2*(10-2*off)-4, rd.Cnt[off])
	}
	assert.InDelta(t, g.Mean(), rd.Ave, 1e-12)
}

func TestLocateBoundaries(t *testing.T) {
	e := NewEngine(reflfix.NewConfig())
	sq := emath.NewFilledFloatGrid(20, 16, 0.8)
	for i:=0; i<20; i++ {
		sq.Set(i, 0, 0.02)
		sq.Set(i, 15, 0.02)
		sq.Set(i, 14, 0.3)
	}
	for j:=0; j<16; j++ {
		sq.Set(0, j, 0.02)
		sq.Set(1, j, 0.02)
		sq.Set(19, j, 0.02)
	}
	e.Squares50[3] = sq
	e.locateBoundaries(3)
	assert.Equal(t, PatchBounds{Top:3, Bottom:17, Left:2, Right:12}, e.Bounds[3])

	// Nothing bright: default to one in from the edges
	e.Squares50[4] = emath.NewFloatGrid(9, 9)
	e.locateBoundaries(4)
	assert.Equal(t, PatchBounds{Top:1, Bottom:7, Left:1, Right:7}, e.Bounds[4])
}

func TestPatchArea(t *testing.T) {
	e := NewEngine(reflfix.NewConfig())
	sq := emath.NewFilledFloatGrid(12, 12, 0.02)
	for i:=2; i<10; i++ {
		for j:=2; j<10; j++ {
			sq.Set(i, j, 0.8)
		}
	}
	sq.Set(5, 5, 1.0)
	e.Squares50[0] = sq
	e.Bounds[0] = PatchBounds{Top:2, Bottom:9, Left:2, Right:9}

	zero := emath.NewFloatGrid(93, 93)
	cache := EstimateCache{}

	all, err := e.PatchArea(PatchSample{0, RegionAll, 1}, zero, cache)
	require.NoError(t, err)
	assert.InDelta(t, (63*0.8+1.0)/64, all, 1e-12)
	assert.Contains(t, cache, 0)

	edges, err := e.PatchArea(PatchSample{0, RegionEdges1, 1}, zero, cache)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, edges, 1e-12)

	center, err := e.PatchArea(PatchSample{0, RegionCenter, 1}, zero, cache)
	require.NoError(t, err)
	assert.InDelta(t, (24*0.8+1.0)/25, center, 1e-12) // rows/cols 3..7

	// With some gain the estimate takes light away
	e.Kernel = emath.NewFilledFloatGrid(KernelSize, KernelSize, 1.0/(KernelSize*KernelSize))
	less, err := e.PatchArea(PatchSample{0, RegionAll, 1}, e.ReflArray(0.2), EstimateCache{})
	require.NoError(t, err)
	assert.Less(t, less, all)

	e.Bounds[0] = PatchBounds{Top:2, Bottom:12, Left:2, Right:9}
	_, err = e.PatchArea(PatchSample{0, RegionAll, 1}, zero, EstimateCache{})
	assert.True(t, reflfix.IsKind(err, reflfix.ErrPlausibility))
}
