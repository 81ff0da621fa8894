package main

import(
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/abworrall/scanner-reflfix/pkg/calibrate"
	"github.com/abworrall/scanner-reflfix/pkg/reflfix"
)

var(
	fVerbosity int
	fConfigFile string
	fCalFile string
	fIntermediates bool
	fIntermediateDir string
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfigFile, "config", "", "yaml file of settings")
	flag.StringVar(&fCalFile, "C", "", "calibration file to write (default scanner_cal.txt)")
	flag.BoolVar(&fIntermediates, "I", false, "write the kernel and reflection array as PNGs")
	flag.StringVar(&fIntermediateDir, "Idir", "", "where -I writes its files")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: reflcal [flags] calibration_scan.tif [gamma | Y_white Y1 [Y2 Y3 Y4]]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "A single number is taken as the scanner's gamma; more are measured luminances\n")
		fmt.Fprintf(flag.CommandLine.Output(), "of the white patch and the gray steps, white first.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Printf("reflcal starting\n")
}

func main() {
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := reflfix.NewConfig()
	if fConfigFile != "" {
		var err error
		if cfg, err = reflfix.LoadConfig(fConfigFile); err != nil {
			log.Fatal(err)
		}
	}
	if fCalFile != "" { cfg.CalibrationFile = fCalFile }
	if fIntermediateDir != "" { cfg.IntermediateDir = fIntermediateDir }
	cfg.Verbosity = fVerbosity
	cfg.SaveIntermediates = cfg.SaveIntermediates || fIntermediates

	neutrals := []float64{}
	for _, arg := range flag.Args()[1:] {
		y, err := strconv.ParseFloat(arg, 64)
		if err != nil || y <= 0 {
			log.Fatalf("'%s' must be a positive number\n", arg)
		}
		neutrals = append(neutrals, y)
	}

	if cfg.Verbosity > 0 {
		log.Printf("Configuration:-\n\n%s\n", cfg.AsYaml())
	}

	cal, err := calibrate.Run(cfg, flag.Arg(0), neutrals)
	if err != nil {
		log.Fatalf("[%s] calibration failed: %v\n", reflfix.KindOf(err), err)
	}
	if cfg.Verbosity > 0 {
		log.Printf("Kernel gain %.4f, gamma %.3f\n", cal.Gain(), cal.Gamma)
	}
}
