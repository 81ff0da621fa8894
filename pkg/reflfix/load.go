package reflfix

import(
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// IsTIFFName is true for .tif and .tiff, in any case.
func IsTIFFName(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff": return true
	}
	return false
}

// IsOutputName spots files this tool has already written in batch mode.
func IsOutputName(filename string) bool {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.HasSuffix(base, "_f")
}

// OutputName is where batch mode writes the corrected version of `in`.
func OutputName(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + "_f.tif"
}

// CollectTIFFs expands the args into a list of input TIFF files,
// recursing into directories. Earlier outputs (*_f.tif) found inside
// directories are skipped, as are non-TIFF files; files named
// explicitly must be TIFFs.
func CollectTIFFs(args ...string) ([]string, error) {
	ret := []string{}
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return nil, WrapIOError(err, "load %s", arg)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return nil, WrapIOError(err, "readdir %s", arg)
			}
			for _, content := range contents {
				path := filepath.Join(arg, content.Name())
				if !content.IsDir() && (!IsTIFFName(path) || IsOutputName(path)) {
					continue
				}
				files, err := CollectTIFFs(path)
				if err != nil {
					return nil, err
				}
				ret = append(ret, files...)
			}

		default:
			if !IsTIFFName(arg) {
				return nil, NewValidationError("'%s' is not a .tif file", arg)
			}
			ret = append(ret, arg)
		}
	}

	return ret, nil
}
