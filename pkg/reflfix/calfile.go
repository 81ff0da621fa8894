package reflfix

import(
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// A Calibration is what a calibration run learns about a scanner: the
// gamma of its output, and a kernel describing how much light comes
// back onto a pixel from each of its neighbours.
//
// The file format is plain text:
//
//   scanner "cal.tif"  "Oct 17 2026 10:01:02"
//   gamma 1.790
//   grid_size 19
//   grid_dpi 10
//    0.00012  0.00015 ...   (grid_size rows of grid_size values)
type Calibration struct {
	Scanner   string  // the scan the calibration was built from
	Timestamp string
	Gamma     float64
	GridSize  int
	GridDPI   int
	Kernel    emath.FloatGrid
}

func (c Calibration)String() string {
	return fmt.Sprintf("Calibration[%s, gamma %.3f, %dx%d@%ddpi, gain %.4f]",
		c.Scanner, c.Gamma, c.GridSize, c.GridSize, c.GridDPI, c.Gain())
}

// Gain is the total fraction of light the kernel puts back.
func (c Calibration)Gain() float64 { return c.Kernel.Gain() }

// Tokenize splits a line on whitespace; double quoted tokens may contain
// spaces, and `\"` escapes a quote inside them.
func Tokenize(line string) []string {
	ret := []string{}
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t' || line[i] == '\r') {
			i++
		}
		if i >= len(line) {
			break
		}

		var tok strings.Builder
		if line[i] == '"' {
			i++
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' && i+1 < len(line) && line[i+1] == '"' {
					i++
				}
				tok.WriteByte(line[i])
				i++
			}
			i++ // closing quote
		} else {
			for i < len(line) && line[i] != ' ' && line[i] != '\t' && line[i] != '\r' {
				tok.WriteByte(line[i])
				i++
			}
		}
		ret = append(ret, tok.String())
	}
	return ret
}

// TokenizeLines returns the tokens of every non-blank line.
func TokenizeLines(r io.Reader) ([][]string, error) {
	ret := [][]string{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if toks := Tokenize(scanner.Text()); len(toks) > 0 {
			ret = append(ret, toks)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, WrapIOError(err, "tokenizing")
	}
	return ret, nil
}

func ParseCalibration(r io.Reader) (Calibration, error) {
	c := Calibration{}
	lines, err := TokenizeLines(r)
	if err != nil {
		return c, err
	}

	if len(lines) == 0 || lines[0][0] != "scanner" {
		return c, NewValidationError("scanner calibration file not recognized")
	}
	if len(lines[0]) > 1 { c.Scanner = lines[0][1] }
	if len(lines[0]) > 2 { c.Timestamp = lines[0][2] }
	lines = lines[1:]

	if len(lines) < 3 || len(lines[0]) < 2 || len(lines[1]) < 2 || len(lines[2]) < 2 ||
		lines[0][0] != "gamma" || lines[1][0] != "grid_size" || lines[2][0] != "grid_dpi" {
		return c, NewValidationError("calibration file format error")
	}

	if c.Gamma, err = strconv.ParseFloat(lines[0][1], 64); err != nil {
		return c, NewValidationError("calibration gamma '%s': %v", lines[0][1], err)
	}
	if c.GridSize, err = strconv.Atoi(lines[1][1]); err != nil || c.GridSize < 1 || c.GridSize%2 == 0 {
		return c, NewValidationError("calibration grid_size '%s' must be a positive odd number", lines[1][1])
	}
	if c.GridDPI, err = strconv.Atoi(lines[2][1]); err != nil || c.GridDPI < 1 {
		return c, NewValidationError("calibration grid_dpi '%s' must be a positive number", lines[2][1])
	}
	if c.Gamma <= 0 {
		return c, NewValidationError("calibration gamma %f must be positive", c.Gamma)
	}

	rows := lines[3:]
	if len(rows) < c.GridSize {
		return c, NewValidationError("calibration has %d kernel rows, want %d", len(rows), c.GridSize)
	}
	c.Kernel = emath.NewFloatGrid(c.GridSize, c.GridSize)
	for r:=0; r<c.GridSize; r++ {
		if len(rows[r]) < c.GridSize {
			return c, NewValidationError("calibration kernel row %d has %d values, want %d", r, len(rows[r]), c.GridSize)
		}
		for col:=0; col<c.GridSize; col++ {
			v, err := strconv.ParseFloat(rows[r][col], 64)
			if err != nil {
				return c, NewValidationError("calibration kernel [%d,%d] '%s': %v", r, col, rows[r][col], err)
			}
			c.Kernel.Set(r, col, v)
		}
	}

	return c, nil
}

// ResolveCalibrationFile looks for `filename` as given, then inside
// fallbackDir.
func ResolveCalibrationFile(filename, fallbackDir string) (string, error) {
	if _, err := os.Stat(filename); err == nil {
		return filename, nil
	}
	if fallbackDir != "" && !filepath.IsAbs(filename) {
		alt := filepath.Join(fallbackDir, filename)
		if _, err := os.Stat(alt); err == nil {
			return alt, nil
		}
	}
	return "", WrapIOError(os.ErrNotExist, "calibration file '%s' not found", filename)
}

// ReadCalibration loads a calibration file, falling back to fallbackDir
// (typically where the executable lives) if it's not where it was said
// to be. The path actually used is returned.
func ReadCalibration(filename, fallbackDir string) (Calibration, string, error) {
	path, err := ResolveCalibrationFile(filename, fallbackDir)
	if err != nil {
		return Calibration{}, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return Calibration{}, "", WrapIOError(err, "open+r calibration '%s'", path)
	}
	defer f.Close()

	c, err := ParseCalibration(f)
	if err != nil {
		return c, path, fmt.Errorf("calibration '%s': %w", path, err)
	}
	return c, path, nil
}

// WriteTo renders the calibration in the text file format.
func (c Calibration)WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scanner \"%s\"  \"%s\"\n", c.Scanner, c.Timestamp)
	fmt.Fprintf(&buf, "gamma %5.3f\n", c.Gamma)
	fmt.Fprintf(&buf, "grid_size %d\n", c.GridSize)
	fmt.Fprintf(&buf, "grid_dpi %d\n", c.GridDPI)
	for r:=0; r<c.Kernel.Rows(); r++ {
		for col:=0; col<c.Kernel.Cols(); col++ {
			fmt.Fprintf(&buf, "%8.5f ", c.Kernel.Get(r, col))
		}
		buf.WriteString("\n")
	}
	return buf.WriteTo(w)
}

func (c Calibration)WriteFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return WrapIOError(err, "open+w calibration '%s'", filename)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return WrapIOError(err, "write calibration '%s'", filename)
	}
	if err := f.Close(); err != nil {
		return WrapIOError(err, "close calibration '%s'", filename)
	}
	return nil
}
