package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-ensemble/benchmark"
	"github.com/nvr-ai/go-ensemble/logging"
	"github.com/nvr-ai/go-ensemble/models/postprocess"
	"github.com/nvr-ai/go-ensemble/util"
	"github.com/pkg/errors"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("Ensemble failed: %v", err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	name := filepath.Base(os.Args[0])
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(fs, name) }

	var (
		input      = fs.String("input", "", "Path to a detection file or a directory of detection files")
		configFile = fs.String("config", "", "Path to ensemble configuration file (.json, .yaml)")
		numClasses = fs.Int("num-classes", postprocess.DefaultNumClasses, "Number of class ids to ensemble")
		workers    = fs.Int("workers", 1, "Number of classes clustered concurrently")
		output     = fs.String("output", "", "Output file for the ensembled detections (default stdout)")
		debug      = fs.Bool("debug", false, "Enable debug logging")
		stats      = fs.Bool("stats", false, "Print run metrics as JSON to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *input == "" {
		return errors.New("input path is required (-input)")
	}

	config := postprocess.DefaultEnsembleConfig()
	if *configFile != "" {
		var err error
		config, err = postprocess.LoadEnsembleConfig(*configFile)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
	}

	// Flags given on the command line win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "num-classes":
			config.NumClasses = *numClasses
		case "workers":
			config.NumWorkers = *workers
		case "debug":
			config.Debug = *debug
		}
	})
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}
	logging.SetLogger(logging.NewTextLogger(stderr, level))

	detections, files, err := util.LoadDetections(*input)
	if err != nil {
		return errors.Wrap(err, "failed to load detections")
	}
	logging.Logger().Info("loaded detections", "files", len(files), "detections", len(detections))

	merged, metrics := benchmark.Measure(postprocess.NewEnsembler(config), detections, len(files))
	logging.Logger().Info("ensemble complete",
		"inputs", metrics.InputCount,
		"outputs", metrics.OutputCount,
		"duration", metrics.TotalDuration,
	)

	if *output != "" {
		if err := util.WriteDetectionFile(*output, merged); err != nil {
			return err
		}
	} else {
		if err := json.NewEncoder(stdout).Encode(postprocess.RecordsFromDetections(merged)); err != nil {
			return errors.Wrap(err, "failed to encode detections")
		}
	}

	if *stats {
		return metrics.WriteJSON(stderr)
	}
	return nil
}

func usage(fs *flag.FlagSet, name string) {
	w := fs.Output()
	fmt.Fprintf(w, "Usage: %s [options]\n\n", name)
	fmt.Fprintf(w, "Merges overlapping detections from several models into averaged boxes.\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s -input ./detections -num-classes 80\n", name)
	fmt.Fprintf(w, "  %s -input ./detections -config ./ensemble.yaml -output merged.json -stats\n", name)
}
