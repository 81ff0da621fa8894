package calibrate

import(
	"fmt"
	"log"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
	"github.com/abworrall/scanner-reflfix/pkg/stats"
)

// A PatchLoc is where a white or gray square sits on the calibration
// target, in inches from the top left of its black surround.
type PatchLoc struct {
	V, H  float64 // top, left
	Size  float64
}

const(
	NumPatches   = 14
	KernelPatch  = 13  // the big 3" white square, used to derive the kernel
)

// PatchLocs: five small and five large gamma steps (white first, then
// 40/255 darker each step), then white squares of increasing size.
var PatchLocs = [NumPatches]PatchLoc{
	{5.5, 2, .15}, {5.5, 2.75, .15}, {5.5, 3.5, .15}, {5.5, 4.25, .15}, {5.5, 5, .15},
	{6.5, 2, .25}, {6.5, 2.75, .25}, {6.5, 3.5, .25}, {6.5, 4.25, .25}, {6.5, 5, .25},
	{7.5, 1.5, .5}, {7.4, 3.0, .7}, {7.3, 4.75, .9}, {1.5, 2, 3},
}

// A ReflDistribution summarizes one square: its trimmed mean, and the
// mean of each concentric ring working in from its edge.
type ReflDistribution struct {
	Ave    float64
	Slice  []float64
	Cnt    []int
}

// PatchBounds are the inclusive limits of a square's valid data within
// its 50dpi extract.
type PatchBounds struct {
	Top, Bottom, Left, Right int
}

type Region int

const(
	RegionAll Region = iota
	RegionCenter
	RegionEdges1  // the outermost ring only
	RegionEdges2  // the two outermost rings
)

func (r Region)String() string {
	switch r {
	case RegionAll:    return "all"
	case RegionCenter: return "center"
	case RegionEdges1: return "edges1"
	case RegionEdges2: return "edges2"
	}
	return "?"
}

// A PatchSample picks part of a square to average, and how many times
// to count it.
type PatchSample struct {
	Square int
	Region Region
	Weight int
}

func (ps PatchSample)String() string { return fmt.Sprintf("sq%02d/%s", ps.Square, ps.Region) }

// QualitySamples are the regions the calibration quality is judged on.
var QualitySamples = []PatchSample{
	{0, RegionAll, 1},
	{5, RegionAll, 1},
	{10, RegionAll, 1}, {10, RegionEdges2, 1}, {10, RegionCenter, 1},
	{11, RegionAll, 1}, {11, RegionEdges2, 1}, {11, RegionCenter, 1},
	{12, RegionAll, 1}, {12, RegionEdges2, 1}, {12, RegionCenter, 1},
	{13, RegionAll, 1}, {13, RegionEdges2, 1}, {13, RegionCenter, 1},
}

// findEdges returns the index of the first value above the midpoint of
// the strip's range, and the first index after that back at or below
// it. Either is len(strip) if not found.
func findEdges(strip []float64) (int, int) {
	min, max := strip[0], strip[0]
	for _, v := range strip {
		if v < min { min = v }
		if v > max { max = v }
	}
	thresh := (min + max) / 2

	d := len(strip)
	for i, v := range strip {
		if v > thresh { d = i; break }
	}
	dd := len(strip)
	for i:=d; i<len(strip); i++ {
		if strip[i] <= thresh { dd = i; break }
	}
	return d, dd
}

// rowStrip averages rows [r0,r1) for each of cols [c0,c0+n).
func rowStrip(g *emath.FloatGrid, r0, r1, c0, n int) []float64 {
	ret := make([]float64, n)
	for i:=0; i<n; i++ {
		for r:=r0; r<r1; r++ {
			ret[i] += g.Get(r, c0+i) / float64(r1-r0)
		}
	}
	return ret
}

// colStrip averages cols [c0,c1) for each of rows [r0,r0+n).
func colStrip(g *emath.FloatGrid, c0, c1, r0, n int) []float64 {
	ret := make([]float64, n)
	for i:=0; i<n; i++ {
		for c:=c0; c<c1; c++ {
			ret[i] += g.Get(r0+i, c) / float64(c1-c0)
		}
	}
	return ret
}

// ringDistribution measures the square inside `e`.
func ringDistribution(img *emath.FloatGrid, e emath.Extents) (ReflDistribution, error) {
	g, err := img.Clip(e)
	if err != nil {
		return ReflDistribution{}, err
	}
	nr, nc := g.Rows(), g.Cols()
	rd := ReflDistribution{Ave: g.Mean()}

	limit := nr
	if nc < limit { limit = nc }
	limit = limit/2 - 2
	if limit < 0 { limit = 0 }
	rd.Slice = make([]float64, limit)
	rd.Cnt = make([]int, limit)

	for off:=0; off<limit; off++ {
		for i:=off+1; i<nr-1-off; i++ {
			rd.Slice[off] += g.Get(i, off) + g.Get(i, nc-off-1)
			rd.Cnt[off] += 2
		}
		for i:=off; i<nc-off; i++ {
			rd.Slice[off] += g.Get(off, i) + g.Get(nr-off-1, i)
			rd.Cnt[off] += 2
		}
		rd.Slice[off] /= float64(rd.Cnt[off])
	}
	return rd, nil
}

// measurePatches finds the exact extents of every square, working from
// their nominal locations, and measures them.
func (e *Engine)measurePatches() error {
	img := &e.image
	darkBlock, err := img.Extract(10, 20, 10, 20)
	if err != nil {
		return reflfix.NewPlausibilityError("calibration scan too small (%dx%d)", img.Rows(), img.Cols())
	}
	e.dark = darkBlock.Mean()

	tiny := e.inchToPix(.125)
	for n, loc := range PatchLocs {
		locV, locH := e.inchToPix(loc.V), e.inchToPix(loc.H)
		off1, off2 := e.inchToPix(.4*loc.Size), e.inchToPix(.6*loc.Size)
		n2 := 2*tiny + e.inchToPix(loc.Size)

		if locV-tiny < 0 || locH-tiny < 0 ||
			locV-tiny+n2 > img.Rows() || locH-tiny+n2 > img.Cols() ||
			locV+off2 > img.Rows() || locH+off2 > img.Cols() || off2 <= off1 {
			return reflfix.NewPlausibilityError("patch %d search area outside the %dx%d scan", n, img.Rows(), img.Cols())
		}

		var ext emath.Extents

		d, dd := findEdges(rowStrip(img, locV+off1, locV+off2, locH-tiny, n2))
		if d == n2 {
			return reflfix.NewPlausibilityError("patch %d: no horizontal edges found", n)
		}
		ext.Left, ext.Right = locH-tiny+d, locH-tiny+dd

		d, dd = findEdges(colStrip(img, locH+off1, locH+off2, locV-tiny, n2))
		if d == n2 {
			return reflfix.NewPlausibilityError("patch %d: no vertical edges found", n)
		}
		ext.Top, ext.Bottom = locV-tiny+d, locV-tiny+dd
		e.Extents[n] = ext

		// Keep clear of the edges, where refraction loses light
		inner := emath.Extents{Top:ext.Top+10, Bottom:ext.Bottom-10, Left:ext.Left+10, Right:ext.Right-10}
		rd, err := ringDistribution(img, inner)
		if err != nil {
			return reflfix.NewPlausibilityError("patch %d %s too small: %v", n, ext, err)
		}
		e.Refl[n] = rd
	}

	if e.Verbosity > 1 {
		d := stats.NewDistribution(1.0)
		for _, rd := range e.Refl {
			d.Record(rd.Ave)
		}
		log.Printf("patch means: %s\n", d)
	}
	return nil
}

// locateBoundaries finds where each 50dpi square's white data starts,
// looking in from the edges along its middle row and column.
func (e *Engine)locateBoundaries(i int) {
	sq := &e.Squares50[i]
	nr, nc := sq.Rows(), sq.Cols()
	pb := PatchBounds{Top:1, Bottom:nr-2, Left:1, Right:nc-2}
	midRow, midCol := nr/2, nc/2

	for j:=0; j<5 && j<nr; j++ {
		if sq.Get(j, midCol) > .45 { pb.Top = j+1; break }
	}
	for j:=0; j<5 && j<nr; j++ {
		if sq.Get(nr-1-j, midCol) > .45 { pb.Bottom = nr-2-j; break }
	}
	for j:=0; j<5 && j<nc; j++ {
		if sq.Get(midRow, j) > .45 { pb.Left = j+1; break }
	}
	for j:=0; j<5 && j<nc; j++ {
		if sq.Get(midRow, nc-1-j) > .45 { pb.Right = nc-2-j; break }
	}
	e.Bounds[i] = pb
}
