package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/isoscan/pkg/filter"
	"github.com/ChrisMcGann/isoscan/pkg/reader"
)

var showSpectra int

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print statistics for a spectral library",
	Long: `Read an MSP or SPTXT library and report spectrum and peak counts, the
m/z range, the precursor charge distribution and total ion current.

With --noise the peak count left after noise removal is reported as well.

Examples:
  isoscan summarize -i library.msp
  isoscan summarize -i library.sptxt --noise histogram --show 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSummarize(cmd.OutOrStdout())
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input file path (required)")
	summarizeCmd.Flags().StringVarP(&inputFormat, "from", "f", "", "Input format: msp, sptxt (auto-detect if not specified)")
	summarizeCmd.Flags().String("mods", "", "Path to modification CSV (mod,massshift) added to the built-in table")
	summarizeCmd.Flags().IntVar(&showSpectra, "show", 0, "Print the peaks of the first N spectra")
	addFilterFlags(summarizeCmd)

	summarizeCmd.MarkFlagRequired("in")
}

type librarySummary struct {
	Spectra       int
	Products      int
	Peaks         int
	FilteredPeaks int
	MinMz         float64
	MaxMz         float64
	TotalIon      float64
	Charges       map[int]int
	Invalid       int
}

func newLibrarySummary() *librarySummary {
	return &librarySummary{
		MinMz:   math.Inf(1),
		MaxMz:   math.Inf(-1),
		Charges: make(map[int]int),
	}
}

func runSummarize(out io.Writer) error {
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
	filterConfig, err := cfg.FilterConfig()
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

	summary, err := summarizeLibrary(rd, filterConfig, showSpectra, out)
	if err != nil {
		return err
	}
	printSummary(out, summary, filterConfig.Method != filter.MethodNone)
	return nil
}

// summarizeLibrary collects statistics for every spectrum in rd and prints the
// peaks of the first show spectra to out.
func summarizeLibrary(rd reader.SpectrumReader, fc filter.Config, show int, out io.Writer) (*librarySummary, error) {
	s := newLibrarySummary()
	for rd.Next() {
		spec := rd.Spectrum()
		s.Spectra++
		s.Peaks += len(spec.Peaks)
		s.TotalIon += spec.TotalIonCurrent

		for _, p := range spec.Peaks {
			s.MinMz = math.Min(s.MinMz, p.MZ)
			s.MaxMz = math.Max(s.MaxMz, p.MZ)
		}
		if spec.IsProduct() {
			s.Products++
			s.Charges[spec.Product.Precursor.Charge]++
		}

		filtered, err := fc.Apply(spec)
		if err != nil {
			return nil, err
		}
		s.FilteredPeaks += len(filtered.Peaks)
		if err := filtered.Validate(); err != nil {
			s.Invalid++
			logger.Debug("invalid spectrum", zap.String("spectrum", spec.Name()), zap.Error(err))
		}

		if s.Spectra <= show {
			color.New(color.FgCyan, color.Bold).Fprintf(out, "\n%s\n", spec.Name())
			if err := filtered.Display(out, 0); err != nil {
				return nil, err
			}
		}
	}
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return s, nil
}

func printSummary(out io.Writer, s *librarySummary, filtered bool) {
	header := color.New(color.FgGreen, color.Bold)
	header.Fprintln(out, "\nLibrary summary")
	fmt.Fprintf(out, "Spectra:   %d (%d with precursor)\n", s.Spectra, s.Products)
	fmt.Fprintf(out, "Peaks:     %d\n", s.Peaks)
	if filtered {
		fmt.Fprintf(out, "Filtered:  %d peaks kept\n", s.FilteredPeaks)
	}
	if s.Peaks > 0 {
		fmt.Fprintf(out, "m/z range: %.4f - %.4f\n", s.MinMz, s.MaxMz)
	}
	fmt.Fprintf(out, "TIC:       %.4g\n", s.TotalIon)
	if s.Invalid > 0 {
		color.New(color.FgYellow).Fprintf(out, "Invalid:   %d spectra would be skipped\n", s.Invalid)
	}

	if len(s.Charges) == 0 {
		return
	}
	header.Fprintln(out, "\nPrecursor charges")
	charges := make([]int, 0, len(s.Charges))
	for z := range s.Charges {
		charges = append(charges, z)
	}
	sort.Ints(charges)
	for _, z := range charges {
		fmt.Fprintf(out, "  %+d: %d\n", z, s.Charges[z])
	}
}
