package cmd

import (
	"github.com/spf13/cobra"
)

var denoiseCmd = &cobra.Command{
	Use:   "denoise",
	Short: "Remove noise peaks from a spectral library",
	Long: `Read an MSP or SPTXT library, drop zero intensity and noise peaks and
write the filtered spectra to a SQLite database.

Noise filters:
  global     keep peaks above ratio x median intensity
  local      keep peaks above ratio x median of a ppm window around each peak
  histogram  keep peaks above the most populated intensity bin of each window
  slope      keep peaks where the interpolated profile is steep

Examples:
  isoscan denoise -i library.msp -o library.db --noise local --snr 2
  isoscan denoise -i library.sptxt -o library.db --noise slope --top-n 150`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(true)
	},
}

func init() {
	addIOFlags(denoiseCmd)
	addFilterFlags(denoiseCmd)
}
