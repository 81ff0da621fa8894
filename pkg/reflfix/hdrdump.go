package reflfix

import(
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/scanner-reflfix/pkg/ecolor"
	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// HDRImage wraps a linear RGBGrid as an hdr.Image, so that intermediate
// stages can be saved as Radiance files and inspected in HDR tools.
type HDRImage struct {
	emath.RGBGrid
}

// Implement image.Image
func (hi HDRImage)ColorModel() color.Model       { return hdrcolor.RGBModel }
func (hi HDRImage)Bounds() image.Rectangle       { return image.Rect(0, 0, hi.Cols(), hi.Rows()) }
func (hi HDRImage)At(x, y int) color.Color       { return hi.HDRAt(x,y) }

// Implement hdr.Image
func (hi HDRImage)HDRAt(x, y int) hdrcolor.Color { return ecolor.NewLinearRGB(hi.RGBGrid.At(y, x)) }
func (hi HDRImage)Size() int                     { return hi.Rows() * hi.Cols() }

// WriteToHDR outputs a HDR image. You can load this into photoshop or other HDR tools.
func WriteToHDR(g emath.RGBGrid, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return WrapIOError(err, "WriteToHDR, open+w '%s'", filename)
	} else {
		defer writer.Close()
		if err := rgbe.Encode(writer, HDRImage{g}); err != nil {
			return WrapIOError(err, "WriteToHDR, encoding RGBE file '%s'", filename)
		}
	}
	return nil
}

// saveIntermediate is best effort; a failed debug dump never fails a run.
func (cfg Config)saveIntermediate(name string, g emath.RGBGrid) {
	if !cfg.SaveIntermediates {
		return
	}
	filename := filepath.Join(cfg.IntermediateDir, name)
	if err := WriteToHDR(g, filename); err != nil {
		log.Printf("intermediate: %v\n", err)
	} else if cfg.Verbosity > 0 {
		log.Printf("wrote %s (%s)\n", filename, g.String())
	}
}

func (cfg Config)saveIntermediateGrid(name, title string, g emath.FloatGrid) {
	if !cfg.SaveIntermediates {
		return
	}
	filename := filepath.Join(cfg.IntermediateDir, name)
	if err := g.ToImg(title, filename); err != nil {
		log.Printf("intermediate: %v\n", err)
	}
}
