package calibrate

import(
	"math"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
)

const(
	KernelSize = 19
	KernelDPI  = 10
	numSteps   = 11 // 0" to 1" in .1" steps
)

// reflectionStrips averages the big square over a .6" band through its
// centre, across its full width and height.
func (e *Engine)reflectionStrips() (horiz, vert []float64, err error) {
	ext := e.Extents[KernelPatch]
	band := e.inchToPix(.3)

	startV, endV := (ext.Top+ext.Bottom)/2-band, (ext.Top+ext.Bottom)/2+band
	startH, endH := (ext.Left+ext.Right)/2-band, (ext.Left+ext.Right)/2+band
	if startV < 0 || startH < 0 || endV > e.image.Rows() || endH > e.image.Cols() ||
		ext.Right <= ext.Left || ext.Bottom <= ext.Top || ext.Right > e.image.Cols() || ext.Bottom > e.image.Rows() {
		return nil, nil, reflfix.NewPlausibilityError("kernel patch %s doesn't fit the scan", ext)
	}

	horiz = rowStrip(&e.image, startV, endV, ext.Left, ext.Right-ext.Left)
	vert = colStrip(&e.image, startH, endH, ext.Top, ext.Bottom-ext.Top)
	return horiz, vert, nil
}

// SmoothStrip folds a strip across the big square in half, and reduces
// it to eleven log compressed levels at .1" intervals in from the edge
// (at 200dpi). The first is half way to the level at the centre.
func SmoothStrip(v []float64, base float64) ([]float64, error) {
	if len(v) < 40 {
		return nil, reflfix.NewPlausibilityError("reflection strip too short (%d)", len(v))
	}
	if base <= 0 {
		return nil, reflfix.NewPlausibilityError("media white %f must be positive", base)
	}

	n := len(v)
	v1 := make([]float64, n/2)
	for i := range v1 {
		v1[i] = (v[i] + v[n-1-i]) / 2
	}

	ret := []float64{base + math.Log(1+(v1[len(v1)-1]-base))/2}
	for i:=10; i<len(v1)-20; i+=20 {
		tmp := 0.0
		for _, x := range v1[i:i+20] {
			tmp += x / 20
		}
		ret = append(ret, base + math.Log(1+(tmp-base)/base))
	}

	for len(ret) < numSteps {
		ret = append(ret, 0)
	}
	return ret[:numSteps], nil
}

// Differences returns the increases between successive levels, forced
// to zero from the first one that isn't positive.
func Differences(v []float64) []float64 {
	ret := make([]float64, len(v)-1)
	for i:=1; i<len(v); i++ {
		ret[i-1] = v[i] - v[i-1]
	}
	for i := range ret {
		if ret[i] <= 0 {
			for ; i<len(ret); i++ {
				ret[i] = 0
			}
			break
		}
	}
	return ret
}

// AlignSteps scales the horizontal and vertical step responses so that
// their sums match, evening out any difference between the two axes.
func AlignSteps(horiz, vert []float64) ([]float64, []float64, error) {
	hd, vd := Differences(horiz), Differences(vert)
	hs, vs := 0.0, 0.0
	for _, v := range hd { hs += v }
	for _, v := range vd { vs += v }
	if hs+vs == 0 {
		return nil, nil, reflfix.NewPlausibilityError("no reflection step found in the big square")
	}

	hadj := vs / ((hs + vs) / 2)
	vadj := hs / ((hs + vs) / 2)
	for i := range hd { hd[i] *= hadj }
	for i := range vd { vd[i] *= vadj }
	return hd, vd, nil
}

// BuildKernel takes the outer product of the two step responses,
// mirrored about the centre, and normalizes it to a gain of one.
func BuildKernel(hd, vd []float64) (emath.FloatGrid, error) {
	mid := KernelSize / 2
	if len(hd) <= mid || len(vd) <= mid {
		return emath.FloatGrid{}, reflfix.NewPlausibilityError("need %d steps, have %d/%d", mid+1, len(hd), len(vd))
	}
	if hd[0]*vd[0] == 0 {
		return emath.FloatGrid{}, reflfix.NewPlausibilityError("reflection step at the edge is zero")
	}

	k := emath.NewFloatGrid(KernelSize, KernelSize)
	for i:=0; i<KernelSize; i++ {
		offV := abs(i - mid)
		for j:=0; j<KernelSize; j++ {
			offH := abs(j - mid)
			k.Set(i, j, vd[offV]*hd[offH] / (vd[0]*hd[0]))
		}
	}

	gain := k.Gain()
	if gain <= 0 {
		return emath.FloatGrid{}, reflfix.NewPlausibilityError("reflection kernel has no gain")
	}
	k.Scale(1 / gain)
	return k, nil
}

func abs(i int) int {
	if i < 0 { return -i }
	return i
}

// buildKernel derives the 10dpi kernel from the big square.
func (e *Engine)buildKernel() error {
	// Estimate of the media white with no re-reflections at all
	e.BaseRefl = e.Refl[0].Ave - .35*(e.Refl[5].Ave-e.Refl[0].Ave)

	horiz, vert, err := e.reflectionStrips()
	if err != nil {
		return err
	}
	xh, err := SmoothStrip(horiz, e.BaseRefl)
	if err != nil {
		return err
	}
	xv, err := SmoothStrip(vert, e.BaseRefl)
	if err != nil {
		return err
	}
	hd, vd, err := AlignSteps(xh, xv)
	if err != nil {
		return err
	}

	e.Kernel, err = BuildKernel(hd, vd)
	return err
}
