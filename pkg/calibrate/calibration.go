package calibrate

import(
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
	"github.com/abworrall/scanner-reflfix/pkg/stats"
)

// CalibrationDPI is the resolution every calibration scan is worked at.
const CalibrationDPI = 200

// The Engine works through a scan of the calibration target: it finds
// the gray squares to get the scanner's gamma, then looks at how the
// white squares brighten towards their middles to derive a kernel for
// re-reflected light.
type Engine struct {
	reflfix.Config

	DPI       float64
	Extents   [NumPatches]emath.Extents     // of each square, in the clipped 200dpi image
	Refl      [NumPatches]ReflDistribution
	Gammas    [4]float64
	Squares50 [NumPatches]emath.FloatGrid   // each square and a pixel of surround, at 50dpi
	Bounds    [NumPatches]PatchBounds       // of the white data within Squares50
	BaseRefl  float64                       // media white, without any re-reflection
	Kernel    emath.FloatGrid               // 19x19 @10dpi, gain 1
	BaseGain  float64

	image     emath.FloatGrid  // green channel, clipped to the target
	dark      float64
}

func NewEngine(cfg reflfix.Config) *Engine {
	return &Engine{Config: cfg, DPI: CalibrationDPI}
}

func (e *Engine)String() string {
	return fmt.Sprintf("Engine[gammas %4.2f %4.2f %4.2f %4.2f, base refl %.4f, base gain %.4f]",
		e.Gammas[0], e.Gammas[1], e.Gammas[2], e.Gammas[3], e.BaseRefl, e.BaseGain)
}

func (e *Engine)inchToPix(f float64) int { return emath.InchToPix(e.DPI, f) }

// LoadTIFF reads the scan as-is (gamma 1), at 200dpi, and returns its
// green channel.
func (e *Engine)LoadTIFF(filename string) (emath.FloatGrid, error) {
	img, err := reflfix.ReadTIFF(filename, 1.0)
	if err != nil {
		return emath.FloatGrid{}, err
	}
	if img.DPI != CalibrationDPI {
		log.Printf("Changing calibration scan from %d to %d dpi\n", img.DPI, CalibrationDPI)
		img = img.ChangeDPI(CalibrationDPI)
	}
	return img.Chans[1], nil
}

// Calibrate runs both passes over the green channel of a scan. See
// SolveGammas for what neutrals can hold.
func (e *Engine)Calibrate(green emath.FloatGrid, neutrals []float64) error {
	ext := emath.GlobalExtents(&green)
	img, err := green.Clip(ext)
	if err != nil {
		return reflfix.NewPlausibilityError("no black surround found (%s): %v", ext, err)
	}
	e.image = img
	if e.Verbosity > 0 {
		log.Printf("Calibration target at %s\n", ext)
	}

	// First pass, at the scan's own encoding, for the gamma
	if err := e.measurePatches(); err != nil {
		return err
	}
	refl := make([]float64, NumPatches)
	for i := range e.Refl {
		refl[i] = e.Refl[i].Ave
	}
	e.Gammas = SolveGammas(refl, neutrals)
	log.Printf("Gammas: %4.2f %4.2f %4.2f %4.2f\n", e.Gammas[0], e.Gammas[1], e.Gammas[2], e.Gammas[3])
	if e.Verbosity > 0 {
		m, s := stats.MeanStd(e.Gammas[:])
		log.Printf("gamma mean %.3f std %.3f, dark %.4f\n", m, s, e.dark)
	}
	if err := CheckGammas(e.Gammas); err != nil {
		return err
	}

	// Now linear; cut out each square and bring it down to 50dpi
	e.image.Pow(e.Gammas[1])
	for i:=0; i<NumPatches; i++ {
		x := e.Extents[i]
		sq200, err := e.image.Extract(x.Top-1, x.Bottom-x.Top+2, x.Left-1, x.Right-x.Left+2)
		if err != nil {
			return reflfix.NewPlausibilityError("square %d at %s: %v", i, x, err)
		}
		sq100, err := emath.Downsample(sq200, 2)
		if err != nil {
			return err
		}
		if e.Squares50[i], err = emath.Downsample(sq100, 2); err != nil {
			return err
		}
		e.locateBoundaries(i)
	}

	// Second pass, in linear light, for the kernel
	if err := e.measurePatches(); err != nil {
		return err
	}
	if err := e.buildKernel(); err != nil {
		return err
	}
	if e.Verbosity > 0 {
		log.Printf("kernel %s\n", e.Kernel.Stats())
	}

	if _, err := e.Quality(true); err != nil {
		return err
	}
	if _, err := e.Quality(false); err != nil {
		return err
	}

	if e.SaveIntermediates {
		e.saveGrid("kernel10dpi.png", "kernel @10dpi", e.Kernel)
		e.saveGrid("reflarray50dpi.png", "refl array @50dpi", e.ReflArray(e.BaseGain))
	}
	return nil
}

func (e *Engine)saveGrid(name, title string, g emath.FloatGrid) {
	if err := g.ToImg(title, filepath.Join(e.IntermediateDir, name)); err != nil {
		log.Printf("intermediate: %v\n", err)
	}
}

// Calibration is the record to persist: the kernel scaled by the base
// gain, and the gamma found at the first gray step.
func (e *Engine)Calibration(source string) reflfix.Calibration {
	k := e.Kernel.Copy()
	k.Scale(e.BaseGain)
	return reflfix.Calibration{
		Scanner:   source,
		Timestamp: time.Now().Format("Jan 2 2006 15:04:05"),
		Gamma:     e.Gammas[1],
		GridSize:  KernelSize,
		GridDPI:   KernelDPI,
		Kernel:    k,
	}
}

// Run calibrates from a scan of the target, and writes the result to
// cfg.CalibrationFile.
func Run(cfg reflfix.Config, calTIF string, neutrals []float64) (reflfix.Calibration, error) {
	if !reflfix.IsTIFFName(calTIF) {
		return reflfix.Calibration{}, reflfix.NewValidationError("calibration scan '%s' must be a .tif", calTIF)
	}
	log.Printf("Calibrating from %s\n", calTIF)

	e := NewEngine(cfg)
	green, err := e.LoadTIFF(calTIF)
	if err != nil {
		return reflfix.Calibration{}, err
	}
	if err := e.Calibrate(green, neutrals); err != nil {
		return reflfix.Calibration{}, fmt.Errorf("calibrating '%s': %w", calTIF, err)
	}

	cal := e.Calibration(calTIF)
	if err := cal.WriteFile(cfg.CalibrationFile); err != nil {
		return cal, err
	}
	log.Printf("Wrote %s to %s\n", cal, cfg.CalibrationFile)
	return cal, nil
}
