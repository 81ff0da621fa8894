package reflfix

import(
	"fmt"
	"log"
	"time"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
	"github.com/abworrall/scanner-reflfix/pkg/stats"
)

// A Corrector removes (or, in simulate mode, adds) re-reflected light,
// using one scanner calibration for every image it is given.
type Corrector struct {
	Config
	Cal     Calibration
	CalPath string // where the calibration was actually loaded from
}

func NewCorrector(cfg Config) (*Corrector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cal, path, err := ReadCalibration(cfg.CalibrationFile, cfg.ExecutableDir)
	if err != nil {
		return nil, err
	}
	c := &Corrector{Config: cfg, Cal: cal, CalPath: path}
	if cfg.Verbosity > 0 {
		log.Printf("Loaded %s from %s\n", cal, path)
	}
	return c, nil
}

// NewCorrectorWithCalibration skips the calibration file.
func NewCorrectorWithCalibration(cfg Config, cal Calibration) (*Corrector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Corrector{Config: cfg, Cal: cal}, nil
}

func (c *Corrector)String() string {
	return fmt.Sprintf("Corrector[%s, restore %.0f%%, simulate:%v]", c.Cal, c.GainRestorePercent(), c.Simulate)
}

type phaseTimer struct {
	enabled bool
	start   time.Time
}

func newPhaseTimer(enabled bool) phaseTimer { return phaseTimer{enabled, time.Now()} }

func (t phaseTimer)lap(phase string) {
	if t.enabled {
		log.Printf(" -- %-22s %8.3fs\n", phase, time.Since(t.start).Seconds())
	}
}

// Correct returns a new image with the modelled re-reflected light
// removed (or added, when simulating), and the gain restored. The input
// must be linear.
func (c *Corrector)Correct(img emath.RGBGrid) (emath.RGBGrid, error) {
	t := newPhaseTimer(c.PrintTimings)

	wk, err := c.Cal.WorkingKernel(img.DPI)
	if err != nil {
		return emath.RGBGrid{}, err
	}
	if c.Verbosity > 0 {
		log.Printf("%s\n", wk)
	}
	c.saveIntermediateGrid("reflarray.png", fmt.Sprintf("reflarray @%ddpi", wk.DPI), wk.FloatGrid)

	// Surround the image with an inch of assumed reflectance, since the
	// lid etc. re-reflects light too
	margin := img.DPI
	padded := img.WithSize(img.Rows()+2*margin, img.Cols()+2*margin)
	padded.Fill(emath.Gray3(c.EdgeReflectance))
	if err := padded.Insert(img, margin, margin); err != nil {
		return emath.RGBGrid{}, err
	}
	t.lap("pad")

	reduced := padded
	for i:=0; i<wk.By3; i++ {
		if reduced, err = emath.DownsampleRGB(reduced, 3); err != nil {
			return emath.RGBGrid{}, err
		}
	}
	for i:=0; i<wk.By2; i++ {
		if reduced, err = emath.DownsampleRGB(reduced, 2); err != nil {
			return emath.RGBGrid{}, err
		}
	}
	c.saveIntermediate("imagereduced.hdr", reduced)
	t.lap("downsample")

	refl, err := EstimateReflectedLight(reduced, wk.FloatGrid)
	if err != nil {
		return emath.RGBGrid{}, err
	}
	c.saveIntermediate("refllight.hdr", refl)
	t.lap("estimate")

	if c.Verbosity > 0 {
		d := stats.NewDistribution(1.0)
		d.RecordAll(refl.Chans[1].Values())
		log.Printf("estimated reflected light (green): %s\n", d)
	}

	gain := 1 + c.GainRestorePercent()/100*c.Cal.Gain()
	out := img.WithSize(img.Rows(), img.Cols())
	for ch:=0; ch<3; ch++ {
		corr := &refl.Chans[ch]
		for r:=0; r<img.Rows(); r++ {
			for col:=0; col<img.Cols(); col++ {
				in := img.Get(r, col, ch)
				adj := emath.SampleClamped(corr, r, col, wk.Reduction) * in
				v := (in - adj) * gain
				if c.Simulate {
					v = (in + adj) / gain
				}
				out.Set(r, col, ch, emath.Clamp01(v))
			}
		}
	}
	t.lap("combine")

	return out, nil
}

// AdjustToWhite scales the image so that the brightest channel's
// 99.99th percentile becomes 1.0, clamping whatever lands above. It
// returns the value that was mapped to 1.0; zero means nothing was done.
func AdjustToWhite(g *emath.RGBGrid) float64 {
	white := 0.0
	for ch:=0; ch<3; ch++ {
		if v := g.Chans[ch].ValueAtPercentile(0.9999); v > white {
			white = v
		}
	}
	if white <= 0 {
		return 0
	}

	for ch:=0; ch<3; ch++ {
		vals := g.Chans[ch].Values()
		for i := range vals {
			vals[i] = emath.Clamp01(vals[i] / white)
		}
	}
	return white
}

// ProcessFile reads a scan, corrects it, and writes the result.
func (c *Corrector)ProcessFile(in, out string) error {
	if !IsTIFFName(in) {
		return NewValidationError("input file '%s' must be a .tif", in)
	}
	if !IsTIFFName(out) {
		return NewValidationError("output file '%s' must be a .tif", out)
	}
	t := newPhaseTimer(c.PrintTimings)
	log.Printf("Correcting reflected light input: %s out: %s\n", in, out)

	gamma := c.Cal.Gamma
	if c.InputIsAdobeRGB {
		gamma = 2.2
	}

	img, err := ReadTIFF(in, gamma)
	if err != nil {
		return err
	}
	if c.Verbosity > 0 {
		log.Printf("Read %s, mean color %v\n", img.String(), meanColor(&img))
	}
	t.lap("read")

	corrected, err := c.Correct(img)
	if err != nil {
		return fmt.Errorf("'%s': %w", in, err)
	}

	if c.Config.AdjustToWhite {
		white := AdjustToWhite(&corrected)
		if c.Verbosity > 0 {
			log.Printf("Adjusted to white, %.4f -> 1.0\n", white)
		}
	}

	switch c.ForceOutputBits {
	case 8:  corrected.Bits16 = false
	case 16: corrected.Bits16 = true
	}
	c.saveIntermediate("corrected.hdr", corrected)
	if c.Verbosity > 0 {
		log.Printf("Corrected mean color %v\n", meanColor(&corrected))
	}

	if err := WriteTIFF(out, corrected, c.ProfileFile); err != nil {
		return err
	}
	t.lap("write")
	return nil
}

func meanColor(g *emath.RGBGrid) emath.Vec3 {
	var s stats.RGBStatistics
	for r:=0; r<g.Rows(); r++ {
		for c:=0; c<g.Cols(); c++ {
			s.Add(g.At(r, c))
		}
	}
	return s.Mean()
}
