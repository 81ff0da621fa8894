package calibrate

import(
	"log"
	"math"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
	"github.com/abworrall/scanner-reflfix/pkg/stats"
)

// An EstimateCache holds each square's corrected 50dpi image, for one
// particular reflection array. Use a new one whenever the array changes.
type EstimateCache map[int]emath.FloatGrid

// ReflArray re-expands the kernel to 50dpi (93x93), scaled by gain.
func (e *Engine)ReflArray(gain float64) emath.FloatGrid {
	ex := emath.Expand(e.Kernel, KernelDPI, 50)
	ex.Scale(gain / 25)
	return ex
}

// PatchArea returns the mean of a region of a square, after the
// re-reflections the array predicts have been removed.
func (e *Engine)PatchArea(ps PatchSample, refl emath.FloatGrid, cache EstimateCache) (float64, error) {
	est, ok := cache[ps.Square]
	if !ok {
		var err error
		if est, err = reflfix.EstimateReflectedLightGray(e.Squares50[ps.Square], refl, e.dark); err != nil {
			return 0, err
		}
		cache[ps.Square] = est
	}

	pb := e.Bounds[ps.Square]
	if pb.Top < 0 || pb.Left < 0 || pb.Bottom >= est.Rows() || pb.Right >= est.Cols() || pb.Bottom < pb.Top || pb.Right < pb.Left {
		return 0, reflfix.NewPlausibilityError("square %d bounds %v outside its %dx%d image", ps.Square, pb, est.Rows(), est.Cols())
	}

	var s stats.Statistics
	switch ps.Region {
	case RegionAll:
		for i:=pb.Top; i<=pb.Bottom; i++ {
			for j:=pb.Left; j<=pb.Right; j++ {
				s.Add(est.Get(i, j))
			}
		}

	case RegionCenter:
		t, b := (pb.Bottom-pb.Top)/4+pb.Top, 3*(pb.Bottom-pb.Top)/4+pb.Top
		l, r := (pb.Right-pb.Left)/4+pb.Left, 3*(pb.Right-pb.Left)/4+pb.Left
		for i:=t; i<=b; i++ {
			for j:=l; j<=r; j++ {
				s.Add(est.Get(i, j))
			}
		}

	case RegionEdges1, RegionEdges2:
		w := 0
		if ps.Region == RegionEdges2 { w = 1 }
		for i:=pb.Top; i<=pb.Bottom; i++ {
			for j:=pb.Left; j<=pb.Right; j++ {
				if i <= pb.Top+w || i >= pb.Bottom-w || j <= pb.Left+w || j >= pb.Right-w {
					s.Add(est.Get(i, j))
				}
			}
		}
	}
	return s.Mean(), nil
}

// Patch13 is a cheap stand in for the corrected centre of the big
// square: its inner mean, less the light a flat field of that mean
// would re-reflect.
func (e *Engine)Patch13(gain float64) (float64, error) {
	inner, err := e.Squares50[KernelPatch].Extract(50, 50, 50, 50)
	if err != nil {
		return 0, reflfix.NewPlausibilityError("big square too small at 50dpi: %v", err)
	}
	ave := inner.Mean()
	return ave - (math.Exp(ave*gain) - 1), nil
}

// OptimizeBaseGain finds the kernel gain in [0, .5] that best evens out
// two small white squares and the middle of the big one, by successive
// halving.
func (e *Engine)OptimizeBaseGain() (float64, error) {
	errAt := func(gain float64) (float64, error) {
		refl := e.ReflArray(gain)
		cache := EstimateCache{}
		var s stats.Statistics
		for _, ps := range []PatchSample{{0, RegionAll, 1}, {5, RegionAll, 1}} {
			v, err := e.PatchArea(ps, refl, cache)
			if err != nil {
				return 0, err
			}
			s.Add(v)
		}
		v, err := e.Patch13(gain)
		if err != nil {
			return 0, err
		}
		s.Add(v)
		return s.Std(), nil
	}

	fmin, fmax := 0.0, 0.5
	errMin, err := errAt(fmin)
	if err != nil {
		return 0, err
	}
	errMax, err := errAt(fmax)
	if err != nil {
		return 0, err
	}

	for i:=0; i<15; i++ {
		if errMin < errMax {
			fmax = (fmin + fmax) / 2
			if errMax, err = errAt(fmax); err != nil {
				return 0, err
			}
		} else {
			fmin = (fmin + fmax) / 2
			if errMin, err = errAt(fmin); err != nil {
				return 0, err
			}
		}
	}
	return (fmin + fmax) / 2, nil
}

// Quality sets the base gain (to zero, or the optimized value) and
// returns the spread of the quality samples after correction; the
// smaller the better. The first sample only shows up in the logs.
func (e *Engine)Quality(zeroGain bool) (float64, error) {
	e.BaseGain = 0
	if !zeroGain {
		gain, err := e.OptimizeBaseGain()
		if err != nil {
			return 0, err
		}
		e.BaseGain = gain
	}

	refl := e.ReflArray(e.BaseGain)
	cache := EstimateCache{}
	var s stats.Statistics
	for _, ps := range QualitySamples {
		v, err := e.PatchArea(ps, refl, cache)
		if err != nil {
			return 0, err
		}
		if e.Verbosity > 0 {
			log.Printf("  %-14s %6.4f\n", ps, v)
		}
		if ps.Square == 0 {
			continue
		}
		for i:=0; i<ps.Weight; i++ {
			s.Add(v)
		}
	}

	std := s.Std()
	label := "Corrected reflection rms err"
	if zeroGain { label = "Uncorrected reflection rms err" }
	log.Printf("%s %7.5f (base gain %.4f)\n", label, 255*std, e.BaseGain)
	return std, nil
}
