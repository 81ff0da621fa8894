package reflfix

import(
	"math"
	"sync"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// convolveLogExp computes exp(sum(k*src))-1 at every position where the
// kernel fits entirely inside src, i.e. a (src - k + 1) sized result.
func convolveLogExp(src, k emath.FloatGrid) emath.FloatGrid {
	nr := src.Rows() - k.Rows() + 1
	nc := src.Cols() - k.Cols() + 1
	out := emath.NewFloatGrid(nr, nc)

	sv, kv := src.Values(), k.Values()
	sc, kr, kc := src.Cols(), k.Rows(), k.Cols()
	for r:=0; r<nr; r++ {
		for c:=0; c<nc; c++ {
			sum := 0.0
			for j:=0; j<kr; j++ {
				srow := sv[(r+j)*sc+c : (r+j)*sc+c+kc]
				krow := kv[j*kc : (j+1)*kc]
				for jj, w := range krow {
					sum += w * srow[jj]
				}
			}
			out.Set(r, c, math.Exp(sum) - 1)
		}
	}
	return out
}

type estimateJob struct {
	Ch   int
	Src  emath.FloatGrid // owned by this job only
	Out  emath.FloatGrid
}

// EstimateReflectedLight returns, for each channel, the fraction of
// extra light re-reflected onto each pixel. The image must already be
// padded by half a kernel on each side; the result is smaller by a
// kernel's width, one cell per fully supported position.
func EstimateReflectedLight(img emath.RGBGrid, kernel emath.FloatGrid) (emath.RGBGrid, error) {
	if kernel.Rows()%2 == 0 || kernel.Rows() != kernel.Cols() {
		return emath.RGBGrid{}, NewValidationError("kernel %dx%d must be square and odd", kernel.Rows(), kernel.Cols())
	}
	if img.Rows() < kernel.Rows() || img.Cols() < kernel.Cols() {
		return emath.RGBGrid{}, NewPlausibilityError("image %dx%d smaller than kernel %dx%d",
			img.Rows(), img.Cols(), kernel.Rows(), kernel.Cols())
	}

	var wg sync.WaitGroup
	jobsChan    := make(chan estimateJob, 3)
	resultsChan := make(chan estimateJob, 3)

	// One worker per channel
	for i:=0; i<3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				job.Out = convolveLogExp(job.Src, kernel)
				resultsChan<- job
			}
		}()
	}

	for ch:=0; ch<3; ch++ {
		jobsChan<- estimateJob{Ch: ch, Src: img.Chans[ch]}
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	ret := img.WithSize(0, 0)
	for result := range resultsChan {
		ret.Chans[result.Ch] = result.Out
	}
	return ret, nil
}

// EstimateReflectedLightGray is the single channel version, returning the
// input with the estimated light removed. Everything beyond the edge of
// the grid is taken to be `fill`, so the result is the same size as img.
func EstimateReflectedLightGray(img, kernel emath.FloatGrid, fill float64) (emath.FloatGrid, error) {
	if kernel.Rows()%2 == 0 || kernel.Rows() != kernel.Cols() {
		return emath.FloatGrid{}, NewValidationError("kernel %dx%d must be square and odd", kernel.Rows(), kernel.Cols())
	}

	half := kernel.Rows() / 2
	padded := emath.NewFilledFloatGrid(img.Rows()+2*half, img.Cols()+2*half, fill)
	if err := padded.Insert(img, half, half); err != nil {
		return emath.FloatGrid{}, err
	}

	out := convolveLogExp(padded, kernel)
	iv, ov := img.Values(), out.Values()
	for i := range ov {
		ov[i] = iv[i] - ov[i]
	}
	return out, nil
}
