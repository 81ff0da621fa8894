package reflfix

import(
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// flatImage is 3" square at 60dpi, which works on a 30dpi kernel
func flatImage(v emath.Vec3) emath.RGBGrid {
	g := emath.NewRGBGrid(180, 180, 60)
	g.Fill(v)
	return g
}

func testCorrector(t *testing.T, cfg Config) *Corrector {
	c, err := NewCorrectorWithCalibration(cfg, testCalibration(0.2))
	require.NoError(t, err)
	return c
}

func TestCorrectGrayScenario(t *testing.T) {
	c := testCorrector(t, NewConfig())
	out, err := c.Correct(flatImage(emath.Gray3(0.5)))
	require.NoError(t, err)
	require.Equal(t, 180, out.Rows())
	require.Equal(t, 180, out.Cols())

	for r:=0; r<180; r++ {
		for col:=0; col<180; col++ {
			v := out.Get(r, col, 1)
			assert.Less(t, v, 0.5)
			assert.Greater(t, v, 0.44)
		}
	}

	// Away from the bright surround, the kernel only sees the gray
	for _, rc := range [][2]int{{60, 60}, {90, 90}, {119, 119}} {
		v := out.Get(rc[0], rc[1], 1)
		assert.Greater(t, v, 0.45)
		assert.Less(t, v, 0.5)
		assert.InDelta(t, 0.492, v, 0.004)
	}

	// Closer to the surround means more light to take away
	assert.Less(t, out.Get(0, 90, 1), out.Get(90, 90, 1))
}

func TestCorrectKeepsChannelsInProportion(t *testing.T) {
	c := testCorrector(t, NewConfig())
	c.EdgeReflectance = 0.9
	out, err := c.Correct(flatImage(emath.Gray3(0.9)))
	require.NoError(t, err)

	for _, rc := range [][2]int{{0, 0}, {45, 130}, {90, 90}, {179, 179}} {
		px := out.At(rc[0], rc[1])
		assert.InDelta(t, px[0], px[1], 1e-12)
		assert.InDelta(t, px[1], px[2], 1e-12)
	}
}

func TestSimulateThenCorrect(t *testing.T) {
	in := flatImage(emath.Gray3(0.5))

	sim := testCorrector(t, NewConfig())
	sim.Simulate = true
	simulated, err := sim.Correct(in)
	require.NoError(t, err)
	assert.Greater(t, simulated.Get(90, 90, 0), 0.5)

	c := testCorrector(t, NewConfig())
	recovered, err := c.Correct(simulated)
	require.NoError(t, err)
	for _, rc := range [][2]int{{60, 60}, {90, 90}, {119, 100}} {
		assert.InDelta(t, 0.5, recovered.Get(rc[0], rc[1], 2), 0.02)
	}
}

func TestCorrectGainRestore(t *testing.T) {
	cfg := NewConfig()
	cfg.GainRestoreScale = 0
	none, err := testCorrector(t, cfg).Correct(flatImage(emath.Gray3(0.5)))
	require.NoError(t, err)

	cfg.GainRestoreScale = 100
	full, err := testCorrector(t, cfg).Correct(flatImage(emath.Gray3(0.5)))
	require.NoError(t, err)

	// Restoring all the gain scales by 1+0.2
	assert.InDelta(t, 1.2*none.Get(90, 90, 0), full.Get(90, 90, 0), 1e-9)
}

func TestCorrectKernelTooBig(t *testing.T) {
	c := testCorrector(t, NewConfig())
	img := emath.NewRGBGrid(50, 50, 10)
	_, err := c.Correct(img)
	assert.True(t, IsKind(err, ErrPlausibility))
}

func TestAdjustToWhite(t *testing.T) {
	g := flatImage(emath.Vec3{0.4, 0.8, 0.2})
	assert.InDelta(t, 0.8, AdjustToWhite(&g), 1e-12)
	assert.InDelta(t, 0.5, g.Get(3, 3, 0), 1e-12)
	assert.InDelta(t, 1.0, g.Get(3, 3, 1), 1e-12)
	assert.InDelta(t, 0.25, g.Get(3, 3, 2), 1e-12)

	black := flatImage(emath.Gray3(0))
	assert.Equal(t, 0.0, AdjustToWhite(&black))
	assert.Equal(t, 0.0, black.Get(0, 0, 0))
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	calFile := filepath.Join(dir, "scanner_cal.txt")
	require.NoError(t, testCalibration(0.2).WriteFile(calFile))

	in := flatImage(emath.Gray3(0.5))
	in.Gamma = 1.8
	in.Bits16 = true
	inFile := filepath.Join(dir, "in.tif")
	require.NoError(t, WriteTIFF(inFile, in, ""))

	cfg := NewConfig()
	cfg.CalibrationFile = calFile
	cfg.ForceOutputBits = 8
	cfg.SaveIntermediates = true
	cfg.IntermediateDir = dir
	c, err := NewCorrector(cfg)
	require.NoError(t, err)
	assert.Equal(t, calFile, c.CalPath)

	outFile := OutputName(inFile)
	require.NoError(t, c.ProcessFile(inFile, outFile))

	out, err := ReadTIFF(outFile, 1.8)
	require.NoError(t, err)
	assert.False(t, out.Bits16)
	assert.Equal(t, 60, out.DPI)
	assert.InDelta(t, 0.492, out.Get(90, 90, 1), 0.01)

	for _, f := range []string{"reflarray.png", "imagereduced.hdr", "refllight.hdr", "corrected.hdr"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	err = c.ProcessFile(filepath.Join(dir, "in.jpg"), outFile)
	assert.True(t, IsKind(err, ErrValidation))
	err = c.ProcessFile(inFile, filepath.Join(dir, "out.png"))
	assert.True(t, IsKind(err, ErrValidation))
	err = c.ProcessFile(filepath.Join(dir, "missing.tif"), outFile)
	assert.True(t, IsKind(err, ErrIO))
}

func TestNewCorrectorErrors(t *testing.T) {
	cfg := NewConfig()
	cfg.ForceOutputBits = 12
	_, err := NewCorrectorWithCalibration(cfg, testCalibration(0.2))
	assert.True(t, IsKind(err, ErrValidation))

	cfg = NewConfig()
	cfg.CalibrationFile = filepath.Join(t.TempDir(), "nope.txt")
	_, err = NewCorrector(cfg)
	assert.True(t, IsKind(err, ErrIO))
}
