package reflfix

import(
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"
)

const DefaultGainRestorePercent = 50.0

type Config struct {
	Verbosity         int

	CalibrationFile   string   // scanner calibration text file, see calfile.go
	ExecutableDir     string   // fallback location for CalibrationFile

	EdgeReflectance   float64  // assumed reflectance of everything outside the scanned area
	GainRestoreScale  float64  // percent of the kernel gain to restore, 0-100; <0 means default
	ForceOutputBits   int      // 0 keeps the input depth, else 8 or 16
	Simulate          bool     // add modelled re-reflected light, rather than remove it
	AdjustToWhite     bool     // scale so the brightest .01% of pixels hit 1.0
	InputIsAdobeRGB   bool     // input already converted to Adobe RGB, so use gamma 2.2
	ProfileFile       string   // ICC profile to attach; default passes the input's through

	SaveIntermediates bool
	IntermediateDir   string
	PrintTimings      bool
}

func NewConfig() Config {
	return Config{
		CalibrationFile:  "scanner_cal.txt",
		EdgeReflectance:  0.85,
		GainRestoreScale: -1,
		IntermediateDir:  ".",
	}
}

func NewConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, NewValidationError("config yaml: %v", err)
	}
	return c, nil
}

func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, WrapIOError(err, "config read %s", filename)
	}
	return NewConfigFromYaml(contents)
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Printf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func (c Config)Validate() error {
	if c.ForceOutputBits != 0 && c.ForceOutputBits != 8 && c.ForceOutputBits != 16 {
		return NewValidationError("output bits %d: must be either 8 or 16", c.ForceOutputBits)
	}
	if c.EdgeReflectance < 0 || c.EdgeReflectance > 1 {
		return NewValidationError("edge reflectance %.3f: must be between 0 and 1", c.EdgeReflectance)
	}
	return nil
}

// GainRestorePercent is GainRestoreScale clamped to [0,100], with the
// default filled in.
func (c Config)GainRestorePercent() float64 {
	switch {
	case c.GainRestoreScale < 0:   return DefaultGainRestorePercent
	case c.GainRestoreScale > 100: return 100
	default:                       return c.GainRestoreScale
	}
}
