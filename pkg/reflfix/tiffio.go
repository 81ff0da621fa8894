package reflfix

import(
	"bufio"
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"io/ioutil"
	"math"
	"os"

	extiff "github.com/rwcarlsen/goexif/tiff"
	"golang.org/x/image/tiff"

	"github.com/abworrall/scanner-reflfix/pkg/ecolor"
	"github.com/abworrall/scanner-reflfix/pkg/emath"
)

// TIFF tags we read or write
const(
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagOrientation     = 274
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagXResolution     = 282
	tagYResolution     = 283
	tagPlanarConfig    = 284
	tagResolutionUnit  = 296
	tagICCProfile      = 34675
)

// readTIFFMeta pulls the resolution and any ICC profile out of the
// first IFD.
func readTIFFMeta(b []byte) (dpi int, profile []byte, err error) {
	t, err := extiff.Decode(bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	if len(t.Dirs) == 0 {
		return 0, nil, NewValidationError("tiff has no image directory")
	}

	xres, unit := 0.0, 2 // inches, unless told otherwise
	for _, tag := range t.Dirs[0].Tags {
		switch tag.Id {
		case tagXResolution:
			if num, den, err := tag.Rat2(0); err == nil && den != 0 {
				xres = float64(num) / float64(den)
			}
		case tagResolutionUnit:
			if u, err := tag.Int(0); err == nil {
				unit = u
			}
		case tagICCProfile:
			profile = append([]byte{}, tag.Val...)
		}
	}

	if unit == 3 {
		xres *= 2.54
	}
	return int(math.Round(xres)), profile, nil
}

// DecodeTIFF decodes an 8 or 16 bit RGB (or gray) TIFF into linear
// light, by raising the normalized samples to `gamma`.
func DecodeTIFF(b []byte, gamma float64) (emath.RGBGrid, error) {
	dpi, profile, err := readTIFFMeta(b)
	if err != nil {
		return emath.RGBGrid{}, WrapIOError(err, "tiff metadata")
	}
	if dpi <= 0 {
		return emath.RGBGrid{}, NewValidationError("tiff has no usable resolution")
	}

	img, err := tiff.Decode(bytes.NewReader(b))
	if err != nil {
		return emath.RGBGrid{}, WrapIOError(err, "tiff decode")
	}

	bits16 := false
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		bits16 = true
	}

	bounds := img.Bounds()
	g := emath.NewRGBGrid(bounds.Dy(), bounds.Dx(), dpi)
	g.Gamma = gamma
	g.Bits16 = bits16
	g.Profile = profile

	table := ecolor.NewGammaTable(gamma, 16)
	for r:=0; r<g.Rows(); r++ {
		for c:=0; c<g.Cols(); c++ {
			lc := table.LinearRGB(img.At(bounds.Min.X+c, bounds.Min.Y+r))
			g.SetAt(r, c, lc.Vec3())
		}
	}
	return g, nil
}

func ReadTIFF(filename string, gamma float64) (emath.RGBGrid, error) {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return emath.RGBGrid{}, WrapIOError(err, "open+r tiff '%s'", filename)
	}
	g, err := DecodeTIFF(b, gamma)
	if err != nil {
		return g, WrapIOError(err, "tiff '%s'", filename)
	}
	return g, nil
}

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	value    uint32  // inline value, or offset of data
	data     []byte  // non-nil if the value doesn't fit inline
}

// EncodeTIFF writes an uncompressed, little endian, single strip RGB
// TIFF. Values are clamped to [0,1] and re-encoded with the grid's
// gamma, at 16 bits if g.Bits16 else 8 bits with error diffusion.
func EncodeTIFF(w io.Writer, g emath.RGBGrid, profile []byte) error {
	if g.Gamma <= 0 {
		return NewValidationError("tiff encode: gamma %f must be positive", g.Gamma)
	}
	le := binary.LittleEndian
	rows, cols := g.Rows(), g.Cols()
	bps := 1
	if g.Bits16 { bps = 2 }
	dataLen := uint32(rows * cols * 3 * bps)

	ifdOffset := 8 + dataLen
	ifdOffset += ifdOffset & 1

	rational := func(n uint32) []byte {
		b := make([]byte, 8)
		le.PutUint32(b[0:], n)
		le.PutUint32(b[4:], 1)
		return b
	}
	bits := make([]byte, 6)
	for i:=0; i<3; i++ {
		le.PutUint16(bits[2*i:], uint16(8*bps))
	}

	entries := []ifdEntry{
		{tag: tagImageWidth, typ: 4, count: 1, value: uint32(cols)},
		{tag: tagImageLength, typ: 4, count: 1, value: uint32(rows)},
		{tag: tagBitsPerSample, typ: 3, count: 3, data: bits},
		{tag: tagCompression, typ: 3, count: 1, value: 1},
		{tag: tagPhotometric, typ: 3, count: 1, value: 2},
		{tag: tagStripOffsets, typ: 4, count: 1, value: 8},
		{tag: tagOrientation, typ: 3, count: 1, value: 1},
		{tag: tagSamplesPerPixel, typ: 3, count: 1, value: 3},
		{tag: tagRowsPerStrip, typ: 4, count: 1, value: uint32(rows)},
		{tag: tagStripByteCounts, typ: 4, count: 1, value: dataLen},
		{tag: tagXResolution, typ: 5, count: 1, data: rational(uint32(g.DPI))},
		{tag: tagYResolution, typ: 5, count: 1, data: rational(uint32(g.DPI))},
		{tag: tagPlanarConfig, typ: 3, count: 1, value: 1},
		{tag: tagResolutionUnit, typ: 3, count: 1, value: 2},
	}
	if len(profile) > 0 {
		entries = append(entries, ifdEntry{tag: tagICCProfile, typ: 7, count: uint32(len(profile)), data: profile})
	}

	// Out of line values go straight after the IFD, word aligned
	next := ifdOffset + 2 + 12*uint32(len(entries)) + 4
	for i := range entries {
		if entries[i].data == nil {
			continue
		}
		if len(entries[i].data) <= 4 {
			entries[i].value = le.Uint32(append(append([]byte{}, entries[i].data...), 0, 0, 0, 0))
			entries[i].data = nil
			continue
		}
		entries[i].value = next
		next += uint32(len(entries[i].data))
		next += next & 1
	}

	bw := bufio.NewWriter(w)
	hdr := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	le.PutUint32(hdr[4:], ifdOffset) // pixel data sits between the header and the IFD
	bw.Write(hdr)

	invGamma := 1 / g.Gamma
	// a separate residual per channel, reset every row
	dither := [3]ecolor.Dither8{{InvGamma: invGamma}, {InvGamma: invGamma}, {InvGamma: invGamma}}
	buf := make([]byte, cols*3*bps)
	for r:=0; r<rows; r++ {
		for ch:=0; ch<3; ch++ {
			dither[ch].Reset()
		}
		for c:=0; c<cols; c++ {
			for ch:=0; ch<3; ch++ {
				v := g.Get(r, c, ch)
				if g.Bits16 {
					le.PutUint16(buf[(c*3+ch)*2:], ecolor.Encode16(v, invGamma))
				} else {
					buf[c*3+ch] = dither[ch].Encode(v)
				}
			}
		}
		bw.Write(buf)
	}
	if (8+dataLen)&1 == 1 {
		bw.WriteByte(0)
	}

	b := make([]byte, 12)
	le.PutUint16(b, uint16(len(entries)))
	bw.Write(b[:2])
	for _, e := range entries {
		le.PutUint16(b[0:], e.tag)
		le.PutUint16(b[2:], e.typ)
		le.PutUint32(b[4:], e.count)
		if e.typ == 3 && e.count == 1 && e.data == nil {
			le.PutUint32(b[8:], 0)
			le.PutUint16(b[8:], uint16(e.value))
		} else {
			le.PutUint32(b[8:], e.value)
		}
		bw.Write(b)
	}
	le.PutUint32(b, 0) // no more IFDs
	bw.Write(b[:4])

	for _, e := range entries {
		if e.data == nil {
			continue
		}
		bw.Write(e.data)
		if len(e.data)&1 == 1 {
			bw.WriteByte(0)
		}
	}

	return bw.Flush()
}

// WriteTIFF writes the grid, attaching the ICC profile from profileFile
// if one is named, else whatever profile the grid was read with.
func WriteTIFF(filename string, g emath.RGBGrid, profileFile string) error {
	profile := g.Profile
	if profileFile != "" {
		b, err := ioutil.ReadFile(profileFile)
		if err != nil {
			return WrapIOError(err, "open+r profile '%s'", profileFile)
		}
		profile = b
	}

	f, err := os.Create(filename)
	if err != nil {
		return WrapIOError(err, "open+w tiff '%s'", filename)
	}
	if err := EncodeTIFF(f, g, profile); err != nil {
		f.Close()
		return WrapIOError(err, "write tiff '%s'", filename)
	}
	if err := f.Close(); err != nil {
		return WrapIOError(err, "close tiff '%s'", filename)
	}
	return nil
}
