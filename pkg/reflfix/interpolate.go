package reflfix

import(
	"fmt"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// InterpolationArray re-derives the kernel at dpiOut, centred in a
// (2*dpiOut+1) square (one inch either side of the centre pixel), and
// rescaled so its gain matches the stored kernel's.
func (c Calibration)InterpolationArray(dpiOut int) (emath.FloatGrid, error) {
	ex := emath.Expand(c.Kernel, float64(c.GridDPI), float64(dpiOut))

	out := emath.NewFloatGrid(2*dpiOut+1, 2*dpiOut+1)
	d := (out.Cols() - ex.Cols()) / 2
	if d <= 0 {
		return emath.FloatGrid{}, NewPlausibilityError("reflectance matrix is not inside 1 in boundary (%d cells at %d dpi)",
			ex.Cols(), dpiOut)
	}
	if err := out.Insert(ex, d, d); err != nil {
		return emath.FloatGrid{}, err
	}

	if outGain := out.Gain(); outGain != 0 {
		out.Scale(c.Gain() / outGain)
	}
	return out, nil
}

// A WorkingKernel is the kernel at the reduced resolution an image gets
// convolved at.
type WorkingKernel struct {
	emath.FloatGrid
	DPI       int  // resolution of the kernel, and of the reduced image
	By3       int  // how many times to downsample by 3 ...
	By2       int  // ... and then by 2, to get there from the image dpi
	Reduction int  // image dpi / DPI
}

func (wk WorkingKernel)String() string {
	return fmt.Sprintf("WorkingKernel[%ddpi, /3 x%d, /2 x%d, reduction %d, %s]",
		wk.DPI, wk.By3, wk.By2, wk.Reduction, wk.FloatGrid.Stats())
}

// WorkingKernel picks the lowest resolution the image can be cheaply
// reduced to, while keeping enough resolution for the light spread to
// be modelled (90 or 60 dpi floors), and builds the kernel for it.
func (c Calibration)WorkingKernel(dpi int) (WorkingKernel, error) {
	if dpi <= 0 {
		return WorkingKernel{}, NewValidationError("image dpi %d must be positive", dpi)
	}

	wk := WorkingKernel{DPI: dpi}
	for wk.DPI >= 90 && wk.DPI%3 == 0 {
		wk.DPI /= 3
		wk.By3++
	}
	for wk.DPI >= 60 && wk.DPI%2 == 0 {
		wk.DPI /= 2
		wk.By2++
	}
	wk.Reduction = dpi / wk.DPI

	k, err := c.InterpolationArray(wk.DPI)
	if err != nil {
		return WorkingKernel{}, err
	}
	wk.FloatGrid = k
	return wk, nil
}
