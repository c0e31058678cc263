package cmd

import (
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Match fragment isotope envelopes against library spectra",
	Long: `Read an MSP or SPTXT library, optionally remove noise, then check every
b and y fragment of each peptide spectrum for its isotope envelope.

Each fragment is recorded with whether the envelope was found and its
correlation, fit and cosine scores against the observed peaks.

Examples:
  isoscan score -i library.msp -o scored.db
  isoscan score -i library.sptxt -o scored.db --tolerance 0.02Da --noise histogram`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(false)
	},
}

func init() {
	addIOFlags(scoreCmd)
	addFilterFlags(scoreCmd)
	addMatchFlags(scoreCmd)
}
