package main

import(
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/abworrall/scanner-reflfix/pkg/calibrate"
	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
)

// options is one invocation's worth of settings; batch files get one per line.
type options struct {
	reflfix.Config
	batch     bool
	batchFile string
	calScan   string
	args      []string
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: scanner-reflfix [flags] in.tif out.tif\n")
		fmt.Fprintf(fs.Output(), "       scanner-reflfix [flags] -B file.tif|dir ...\n")
		fmt.Fprintf(fs.Output(), "       scanner-reflfix -b batchfile.txt\n")
		fmt.Fprintf(fs.Output(), "       scanner-reflfix -c calibration_scan.tif [-C scanner_cal.txt]\n\n")
		fs.PrintDefaults()
	}
}

// parseArgs applies args on top of base; a -config file replaces base.
func parseArgs(base reflfix.Config, args []string) (options, error) {
	var(
		fVerbosity int
		fConfigFile string
		fAdjustToWhite bool
		fCalFile string
		fOutputBits int
		fAdobeRGB bool
		fGainRestore float64
		fProfile string
		fSimulate bool
		fEdgeRefl float64
		fTimings bool
		fIntermediates bool
		fIntermediateDir string
	)

	o := options{}
	fs := flag.NewFlagSet("scanner-reflfix", flag.ContinueOnError)
	fs.Usage = usage(fs)

	fs.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	fs.StringVar(&fConfigFile, "config", "", "yaml file of settings; flags override it")
	fs.BoolVar(&fAdobeRGB, "A", false, "input is already Adobe RGB (gamma 2.2)")
	fs.BoolVar(&o.batch, "B", false, "batch mode: correct every .tif in the args (dirs are walked) into <name>_f.tif")
	fs.StringVar(&o.batchFile, "b", "", "file of command lines to run, one per line ('%' starts a comment)")
	fs.StringVar(&fCalFile, "C", "scanner_cal.txt", "scanner calibration file")
	fs.StringVar(&o.calScan, "c", "", "build the -C calibration file from this scan of the reflection target")
	fs.IntVar(&fOutputBits, "F", 0, "force output bits per sample (8 or 16)")
	fs.BoolVar(&fIntermediates, "I", false, "write intermediate images, for debugging")
	fs.StringVar(&fIntermediateDir, "Idir", ".", "where -I writes its files")
	fs.Float64Var(&fGainRestore, "N", -1, "percent of the reflected light's gain to restore, 0-100 (default 50)")
	fs.StringVar(&fProfile, "P", "", "ICC profile to attach to the output, instead of the input's")
	fs.BoolVar(&fSimulate, "R", false, "simulate: add re-reflected light instead of removing it")
	fs.Float64Var(&fEdgeRefl, "S", 0.85, "reflectance assumed beyond the edges of the scan")
	fs.BoolVar(&fTimings, "T", false, "log how long each phase takes")
	fs.BoolVar(&fAdjustToWhite, "W", false, "scale output so the brightest .01% of pixels are white")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.Config = base
	if fConfigFile != "" {
		cfg, err := reflfix.LoadConfig(fConfigFile)
		if err != nil {
			return o, err
		}
		o.Config = cfg
	}

	// Only flags given explicitly override the yaml
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":    o.Verbosity = fVerbosity
		case "A":    o.InputIsAdobeRGB = fAdobeRGB
		case "C":    o.CalibrationFile = fCalFile
		case "F":    o.ForceOutputBits = fOutputBits
		case "I":    o.SaveIntermediates = fIntermediates
		case "Idir": o.IntermediateDir = fIntermediateDir
		case "N":    o.GainRestoreScale = fGainRestore
		case "P":    o.ProfileFile = fProfile
		case "R":    o.Simulate = fSimulate
		case "S":    o.EdgeReflectance = fEdgeRefl
		case "T":    o.PrintTimings = fTimings
		case "W":    o.Config.AdjustToWhite = fAdjustToWhite
		}
	})

	if exe, err := os.Executable(); err == nil {
		o.ExecutableDir = filepath.Dir(exe)
	}
	o.args = fs.Args()

	return o, o.Config.Validate()
}

// run carries out one invocation, returning how many images failed.
func run(o options) (int, error) {
	if o.Verbosity > 0 {
		log.Printf("Configuration:-\n\n%s\n", o.Config.AsYaml())
	}

	if o.calScan != "" {
		if _, err := calibrate.Run(o.Config, o.calScan, nil); err != nil {
			return 0, err
		}
		if len(o.args) == 0 && !o.batch {
			return 0, nil
		}
	}

	var pairs [][2]string
	if o.batch {
		files, err := reflfix.CollectTIFFs(o.args...)
		if err != nil {
			return 0, err
		}
		if len(files) == 0 {
			return 0, reflfix.NewValidationError("batch mode: no .tif files found in %v", o.args)
		}
		for _, f := range files {
			pairs = append(pairs, [2]string{f, reflfix.OutputName(f)})
		}
	} else {
		if len(o.args) != 2 {
			return 0, reflfix.NewValidationError("need an input and an output file, got %d args", len(o.args))
		}
		pairs = append(pairs, [2]string{o.args[0], o.args[1]})
	}

	c, err := reflfix.NewCorrector(o.Config)
	if err != nil {
		return 0, err
	}
	log.Printf("Using %s from %s\n", c.Cal, c.CalPath)

	nFailed := 0
	for _, p := range pairs {
		if err := c.ProcessFile(p[0], p[1]); err != nil {
			log.Printf("FAILED %s: %v\n", p[0], err)
			nFailed++
			continue
		}
		log.Printf("Wrote %s\n", p[1])
	}
	return nFailed, nil
}

// runBatchFile runs each line of the file as if it were a command line.
func runBatchFile(base reflfix.Config, filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, reflfix.WrapIOError(err, "open+r batch file '%s'", filename)
	}
	defer f.Close()

	lines, err := reflfix.TokenizeLines(f)
	if err != nil {
		return 0, err
	}

	nFailed := 0
	for i, toks := range lines {
		if strings.HasPrefix(toks[0], "%") {
			continue
		}
		if filepath.Base(toks[0]) == "scanner-reflfix" {
			toks = toks[1:]
		}
		log.Printf("%s:%d: %s\n", filename, i+1, strings.Join(toks, " "))

		o, err := parseArgs(base, toks)
		if err == nil && o.batchFile != "" {
			err = reflfix.NewValidationError("batch files can't nest (-b %s)", o.batchFile)
		}
		if err == nil {
			var n int
			n, err = run(o)
			nFailed += n
		}
		if err != nil {
			log.Printf("FAILED %s:%d: %v\n", filename, i+1, err)
			nFailed++
		}
	}
	return nFailed, nil
}

func main() {
	log.Printf("scanner-reflfix starting\n")

	o, err := parseArgs(reflfix.NewConfig(), os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(0)
	} else if err != nil {
		log.Fatal(err)
	}

	var nFailed int
	if o.batchFile != "" {
		nFailed, err = runBatchFile(o.Config, o.batchFile)
	} else {
		nFailed, err = run(o)
	}

	if err != nil {
		log.Fatalf("[%s] %v\n", reflfix.KindOf(err), err)
	}
	if nFailed > 0 {
		log.Printf("%d failure(s)\n", nFailed)
		os.Exit(1)
	}
}
