package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/isoscan/pkg/core"
	"github.com/ChrisMcGann/isoscan/pkg/pipeline"
	"github.com/ChrisMcGann/isoscan/pkg/reader"
	"github.com/ChrisMcGann/isoscan/pkg/writer/sqlite"
)

const defaultModFile = "unimod_custom.csv"

var (
	inputFile   string
	inputFormat string
	outputFile  string
)

// flagKeys maps command flags to configuration keys.
var flagKeys = map[string]string{
	"noise":           "filter.method",
	"snr":             "filter.signal_to_noise_ratio",
	"window-ppm":      "filter.window_ppm",
	"slope-threshold": "filter.slope_threshold",
	"top-n":           "filter.top_n",
	"cutoff":          "filter.intensity_cutoff",
	"tolerance":       "match.tolerance",
	"threshold":       "match.relative_intensity_threshold",
	"max-isotopes":    "match.max_isotopes",
	"max-charge":      "match.max_charge",
	"threads":         "pipeline.threads",
	"chunk-size":      "pipeline.chunk_size",
	"mods":            "library.mod_file",
	"mass-offset":     "library.mass_offset_file",
	"compound-class":  "library.compound_class_file",
}

// bindCommandFlags binds the flags of the running command to their
// configuration keys so flags override files and environment.
func bindCommandFlags(cmd *cobra.Command) error {
	var lastErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			if err := v.BindPFlag(key, f); err != nil {
				lastErr = err
			}
		}
	})
	return lastErr
}

func addIOFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input file path (required)")
	cmd.Flags().StringVarP(&inputFormat, "from", "f", "", "Input format: msp, sptxt (auto-detect if not specified)")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output database file (required)")
	cmd.Flags().String("mods", "", "Path to modification CSV (mod,massshift) added to the built-in table")
	cmd.Flags().String("mass-offset", "", "Path to mass offset CSV file")
	cmd.Flags().String("compound-class", "", "Path to compound class CSV file")
	cmd.Flags().Int("threads", 0, "Number of worker threads (default: number of CPUs)")
	cmd.Flags().Int("chunk-size", 10000, "Chunk size for batch processing")

	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("noise", "none", "Noise filter: none, global, local, histogram, slope")
	cmd.Flags().Float64("snr", 1.4826, "Signal-to-noise ratio for the global and local filters")
	cmd.Flags().Float64("window-ppm", 10000, "Local window half-width in ppm")
	cmd.Flags().Float64("slope-threshold", 0.33, "Absolute slope threshold for the slope filter")
	cmd.Flags().Int("top-n", 0, "Keep only top N most intense peaks (0 = no limit)")
	cmd.Flags().Float64("cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
}

func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("tolerance", "10ppm", "Peak matching tolerance, e.g. 10ppm or 0.02Da")
	cmd.Flags().Float64("threshold", 0.1, "Relative intensity above which isotopes must be observed")
	cmd.Flags().Int("max-isotopes", 30, "Maximum isotopes in theoretical envelopes")
	cmd.Flags().Int("max-charge", 0, "Highest fragment charge (0 = precursor charge - 1)")
}

// runPipeline is shared by denoise and score.
func runPipeline(skipMatching bool) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	format := inputFormat
	if format == "" {
		var err error
		if format, err = reader.DetectFormat(inputFile); err != nil {
			return err
		}
	}

	modDB, err := loadModDatabase(cfg.Library.ModFile)
	if err != nil {
		return err
	}
	ann, err := loadAnnotations(cfg.Library.MassOffsetFile, cfg.Library.CompoundClassFile)
	if err != nil {
		return err
	}

	filterConfig, err := cfg.FilterConfig()
	if err != nil {
		return err
	}
	fragmentOptions, err := cfg.FragmentOptions()
	if err != nil {
		return err
	}

	inFile, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	rd, err := reader.Open(inFile, format, inputFile, modDB)
	if err != nil {
		return err
	}

	writer, err := sqlite.NewWriter(outputFile, fmt.Sprintf("isoscan %s of %s", rootCmd.Version, inputFile))
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	logger.Info("processing library",
		zap.String("input", inputFile),
		zap.String("format", format),
		zap.String("output", outputFile),
		zap.String("noise", string(filterConfig.Method)),
		zap.Bool("matching", !skipMatching),
		zap.Int("threads", cfg.Pipeline.Threads),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.Options{
		Filter:       filterConfig,
		Fragment:     fragmentOptions,
		Threads:      cfg.Pipeline.Threads,
		ChunkSize:    cfg.Pipeline.ChunkSize,
		Annotations:  ann,
		SkipMatching: skipMatching,
	}, logger)

	started := time.Now()
	stats, err := p.Run(ctx, rd, writer)
	if err != nil {
		logger.Error("processing failed", zap.Error(err), zap.Int("processed", stats.Processed))
		return err
	}

	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	printStats(stats, time.Since(started))
	return nil
}

func printStats(stats pipeline.Stats, elapsed time.Duration) {
	header := color.New(color.FgGreen, color.Bold)
	header.Println("\nProcessing complete!")
	fmt.Printf("Processed: %d spectra\n", stats.Processed)
	fmt.Printf("Written:   %d spectra\n", stats.Written)
	if stats.Skipped > 0 {
		color.Yellow("Skipped:   %d spectra (see warnings)", stats.Skipped)
	}
	if stats.Matched > 0 {
		fmt.Printf("Envelopes: %d fragment envelopes found\n", stats.Matched)
	}
	fmt.Printf("Elapsed:   %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Output:    %s\n", outputFile)
}

func loadModDatabase(path string) (*core.ModDatabase, error) {
	modDB := core.DefaultModDatabase()
	if path == "" {
		// picked up from the working directory when present
		if _, err := os.Stat(defaultModFile); err != nil {
			return modDB, nil
		}
		path = defaultModFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open modification file: %w", err)
	}
	defer f.Close()

	if err := modDB.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load modification file %s: %w", path, err)
	}
	logger.Info("loaded modifications", zap.String("path", path), zap.Int("total", modDB.Len()))
	return modDB, nil
}

func loadAnnotations(massOffsetPath, compoundClassPath string) (*reader.Annotations, error) {
	if massOffsetPath == "" && compoundClassPath == "" {
		return nil, nil
	}

	ann := &reader.Annotations{}
	if massOffsetPath != "" {
		f, err := os.Open(massOffsetPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open mass offset CSV: %w", err)
		}
		defer f.Close()
		if ann.MassOffsets, err = reader.LoadMassOffsets(f); err != nil {
			return nil, fmt.Errorf("failed to load mass offset CSV: %w", err)
		}
		logger.Info("loaded mass offsets", zap.Int("count", len(ann.MassOffsets)))
	}
	if compoundClassPath != "" {
		f, err := os.Open(compoundClassPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open compound class CSV: %w", err)
		}
		defer f.Close()
		if ann.CompoundClasses, err = reader.LoadCompoundClasses(f); err != nil {
			return nil, fmt.Errorf("failed to load compound class CSV: %w", err)
		}
		logger.Info("loaded compound classes", zap.Int("count", len(ann.CompoundClasses)))
	}
	return ann, nil
}
