package emath

import(
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampGrid(rows, cols int) FloatGrid {
	g := NewFloatGrid(rows, cols)
	for r:=0; r<rows; r++ {
		for c:=0; c<cols; c++ {
			g.Set(r, c, float64(r*100 + c))
		}
	}
	return g
}

func TestFromSliceMajorOrder(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6}

	rm, err := NewFloatGridFromSlice(2, 3, vals, true)
	require.NoError(t, err)
	assert.Equal(t, 2.0, rm.Get(0, 1))
	assert.Equal(t, 4.0, rm.Get(1, 0))

	cm, err := NewFloatGridFromSlice(2, 3, vals, false)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cm.Get(0, 1))
	assert.Equal(t, 2.0, cm.Get(1, 0))

	_, err = NewFloatGridFromSlice(2, 2, vals, true)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestExtractClipInsert(t *testing.T) {
	g := rampGrid(10, 12)

	sub, err := g.Extract(2, 3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Rows())
	assert.Equal(t, 5, sub.Cols())
	assert.Equal(t, 204.0, sub.Get(0, 0))
	assert.Equal(t, 408.0, sub.Get(2, 4))

	clip, err := g.Clip(Extents{Top:2, Bottom:4, Left:4, Right:8})
	require.NoError(t, err)
	assert.Equal(t, sub.Values(), clip.Values())

	_, err = g.Extract(8, 3, 0, 1)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	_, err = g.Clip(Extents{Top:4, Bottom:2, Left:0, Right:1})
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	dst := NewFilledFloatGrid(6, 7, -1)
	require.NoError(t, dst.Insert(sub, 1, 2))
	assert.Equal(t, -1.0, dst.Get(0, 0))
	assert.Equal(t, 204.0, dst.Get(1, 2))
	assert.Equal(t, 408.0, dst.Get(3, 6))

	err = dst.Insert(sub, 4, 0)
	assert.True(t, errors.Is(err, ErrOutOfBounds), "insert overflowing rows must fail")
	err = dst.Insert(sub, 0, 3)
	assert.True(t, errors.Is(err, ErrOutOfBounds), "insert overflowing cols must fail")
}

func TestArithmetic(t *testing.T) {
	g := NewFilledFloatGrid(4, 5, 0.25)
	assert.InDelta(t, 0.25, g.Mean(), 1e-12)
	assert.InDelta(t, 5.0, g.Gain(), 1e-12)

	g.Pow(0.5)
	assert.InDelta(t, 0.5, g.Get(3, 4), 1e-12)
	g.Scale(4)
	assert.InDelta(t, 2.0, g.Get(0, 0), 1e-12)

	c := g.Copy()
	c.Set(0, 0, 9)
	assert.Equal(t, 2.0, g.Get(0, 0), "copies must not share storage")

	ramp := rampGrid(3, 5)
	tr := ramp.Transpose()
	assert.Equal(t, 5, tr.Rows())
	assert.Equal(t, 104.0, tr.Get(4, 1))

	min, max := ramp.MinMax()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 204.0, max)
}

func TestValueAtPercentile(t *testing.T) {
	g := NewFloatGrid(100, 100)
	for i := range g.Values() {
		g.Values()[i] = float64(i) / 10000
	}
	assert.InDelta(t, 0.9999, g.ValueAtPercentile(1.0), 1e-9)
	assert.InDelta(t, 0.5, g.ValueAtPercentile(0.5), 1e-3)
}

func TestToImg(t *testing.T) {
	g := rampGrid(20, 30)
	filename := filepath.Join(t.TempDir(), "ramp.png")
	require.NoError(t, g.ToImg("ramp", filename))
	assert.FileExists(t, filename)
}

func TestRGBGridOps(t *testing.T) {
	g := NewRGBGrid(4, 6, 300)
	g.Fill(Vec3{.1, .2, .3})
	assert.Equal(t, Vec3{.1, .2, .3}, g.At(3, 5))

	small := NewRGBGrid(2, 2, 300)
	small.Fill(Gray3(1))
	require.NoError(t, g.Insert(small, 1, 1))
	assert.Equal(t, Gray3(1), g.At(2, 2))
	assert.Error(t, g.Insert(small, 3, 0))

	sub, err := g.SubGrid(1, 2, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Rows())
	assert.Equal(t, 3, sub.Cols())
	assert.Equal(t, 300, sub.DPI)
	assert.Equal(t, Vec3{.1, .2, .3}, sub.At(0, 2))
}

func TestChangeDPI(t *testing.T) {
	g := NewRGBGrid(600, 300, 300)
	for r:=0; r<600; r++ {
		for c:=0; c<300; c++ {
			g.SetAt(r, c, Gray3(float64(r)))
		}
	}

	h := g.ChangeDPI(200)
	assert.Equal(t, 200, h.DPI)
	assert.Equal(t, 399, h.Rows())
	assert.Equal(t, 199, h.Cols())
	assert.Equal(t, 3.0, h.Get(2, 0, 1)) // row 2 @200dpi is source row 3
}
