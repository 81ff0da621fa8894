package emath

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrOutOfBounds is wrapped by any grid operation that would read or
// write outside a grid.
var ErrOutOfBounds = errors.New("grid access out of bounds")

// A FloatGrid is a row-major grid of floats, with some operations
type FloatGrid struct {
	rows   int
	cols   int
	values []float64
}

// Extents is a boundary box; all four edges are included.
type Extents struct {
	Top, Bottom int
	Left, Right int
}

func (e Extents)String() string {
	return fmt.Sprintf("[r%d-%d, c%d-%d]", e.Top, e.Bottom, e.Left, e.Right)
}

func NewFloatGrid(rows, cols int) FloatGrid {
	if rows < 0 { rows = 0 }
	if cols < 0 { cols = 0 }
	return FloatGrid{
		rows:   rows,
		cols:   cols,
		values: make([]float64, rows*cols),
	}
}

func NewFilledFloatGrid(rows, cols int, v float64) FloatGrid {
	fg := NewFloatGrid(rows, cols)
	fg.Fill(v)
	return fg
}

// NewFloatGridFromSlice copies `vals` into a new grid. If rowMajor is
// false, vals is read column by column.
func NewFloatGridFromSlice(rows, cols int, vals []float64, rowMajor bool) (FloatGrid, error) {
	if len(vals) != rows*cols {
		return FloatGrid{}, errors.Wrapf(ErrOutOfBounds, "have %d values for a %dx%d grid", len(vals), rows, cols)
	}
	fg := NewFloatGrid(rows, cols)
	if rowMajor {
		copy(fg.values, vals)
		return fg, nil
	}
	for c:=0; c<cols; c++ {
		for r:=0; r<rows; r++ {
			fg.Set(r, c, vals[c*rows + r])
		}
	}
	return fg, nil
}

func (fg *FloatGrid)NewFromThis() FloatGrid    { return NewFloatGrid(fg.rows, fg.cols) }
func (fg *FloatGrid)Set(r, c int, v float64)   { fg.values[fg.cols*r + c] = v }
func (fg *FloatGrid)Get(r, c int) float64      { return fg.values[fg.cols*r + c] }
func (fg *FloatGrid)Add(r, c int, v float64)   { fg.values[fg.cols*r + c] += v }
func (fg *FloatGrid)Rows() int                 { return fg.rows }
func (fg *FloatGrid)Cols() int                 { return fg.cols }
func (fg *FloatGrid)Len() int                  { return len(fg.values) }
func (fg *FloatGrid)Values() []float64         { return fg.values } // shares the backing store

func (fg *FloatGrid)Copy() FloatGrid {
	g2 := FloatGrid{rows: fg.rows, cols: fg.cols, values: make([]float64, len(fg.values))}
	copy(g2.values, fg.values)
	return g2
}

func (fg *FloatGrid)Fill(v float64) {
	for i := range fg.values {
		fg.values[i] = v
	}
}

// Pow raises every value to `p`; used to apply and remove gamma.
func (fg *FloatGrid)Pow(p float64) {
	for i, v := range fg.values {
		fg.values[i] = math.Pow(v, p)
	}
}

func (fg *FloatGrid)Scale(f float64) { floats.Scale(f, fg.values) }

func (fg *FloatGrid)Sum() float64 {
	if len(fg.values) == 0 { return 0 }
	return floats.Sum(fg.values)
}

func (fg *FloatGrid)Mean() float64 {
	if len(fg.values) == 0 { return 0 }
	return fg.Sum() / float64(len(fg.values))
}

// Gain is the mean times the element count; for a kernel, the total
// fraction of light it spreads.
func (fg *FloatGrid)Gain() float64 { return fg.Mean() * float64(len(fg.values)) }

func (fg *FloatGrid)MinMax() (float64, float64) {
	if len(fg.values) == 0 { return 0, 0 }
	return floats.Min(fg.values), floats.Max(fg.values)
}

// Extract returns the nRows x nCols block starting at (row,col).
func (fg *FloatGrid)Extract(row, nRows, col, nCols int) (FloatGrid, error) {
	if row < 0 || col < 0 || nRows < 0 || nCols < 0 || row+nRows > fg.rows || col+nCols > fg.cols {
		return FloatGrid{}, errors.Wrapf(ErrOutOfBounds, "extract %dx%d@(%d,%d) from %dx%d",
			nRows, nCols, row, col, fg.rows, fg.cols)
	}
	ret := NewFloatGrid(nRows, nCols)
	for r:=0; r<nRows; r++ {
		copy(ret.values[r*nCols:(r+1)*nCols], fg.values[(row+r)*fg.cols+col:])
	}
	return ret, nil
}

// Clip extracts the region inside `e`, edges included.
func (fg *FloatGrid)Clip(e Extents) (FloatGrid, error) {
	if e.Bottom < e.Top || e.Right < e.Left {
		return FloatGrid{}, errors.Wrapf(ErrOutOfBounds, "clip to inverted extents %s", e)
	}
	return fg.Extract(e.Top, e.Bottom-e.Top+1, e.Left, e.Right-e.Left+1)
}

// Insert copies `from` into this grid with its origin at (row,col).
func (fg *FloatGrid)Insert(from FloatGrid, row, col int) error {
	if row < 0 || col < 0 || from.rows+row > fg.rows || from.cols+col > fg.cols {
		return errors.Wrapf(ErrOutOfBounds, "insert %dx%d@(%d,%d) into %dx%d",
			from.rows, from.cols, row, col, fg.rows, fg.cols)
	}
	for r:=0; r<from.rows; r++ {
		copy(fg.values[(row+r)*fg.cols+col:], from.values[r*from.cols:(r+1)*from.cols])
	}
	return nil
}

func (fg *FloatGrid)Transpose() FloatGrid {
	ret := NewFloatGrid(fg.cols, fg.rows)
	for r:=0; r<ret.rows; r++ {
		for c:=0; c<ret.cols; c++ {
			ret.Set(r, c, fg.Get(c, r))
		}
	}
	return ret
}

// ValueAtPercentile returns the empirical quantile `p` (0..1) of all
// the values in the grid.
func (fg *FloatGrid)ValueAtPercentile(p float64) float64 {
	if len(fg.values) == 0 { return 0 }
	vals := make([]float64, len(fg.values))
	copy(vals, fg.values)
	sort.Float64s(vals)
	return stat.Quantile(p, stat.Empirical, vals, nil)
}

func (fg *FloatGrid)Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}, gain %f]", fg.rows, fg.cols, min, max, fg.Gain())
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid)ToImg(title, filename string) error {
	min, max := fg.MinMax()
	if max <= min { max = min + 1 }

	img := image.NewRGBA64(image.Rectangle{Max:image.Point{fg.cols, fg.rows}})
	for r:=0; r<fg.rows; r++ {
		for c:=0; c<fg.cols; c++ {
			gray := GammaExpand_F64((fg.Get(r,c) - min) / (max - min))
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(c, r, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,0,0)
	dc.DrawString(title, 4, 14)
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("ToImg '%s': %v", filename, err)
	}
	return nil
}
