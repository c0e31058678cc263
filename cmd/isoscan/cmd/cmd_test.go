package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/isoscan/pkg/filter"
	"github.com/ChrisMcGann/isoscan/pkg/reader/msp"
)

const testLibrary = `Name: PEPTIDEK/2
Comment: Parent=464.7
Num peaks: 3
300.5	120
175.119	500
400.2	80

Name: AMGK/3
Num peaks: 2
200.0	10
250.0	30
`

func init() {
	color.NoColor = true
}

func TestSummarizeLibrary(t *testing.T) {
	logger = zap.NewNop()

	fc := filter.DefaultConfig()
	fc.Method = filter.MethodGlobal

	var out bytes.Buffer
	rd := msp.NewReader(strings.NewReader(testLibrary), nil)
	s, err := summarizeLibrary(rd, fc, 1, &out)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Spectra)
	assert.Equal(t, 2, s.Products)
	assert.Equal(t, 5, s.Peaks)
	assert.Equal(t, 2, s.FilteredPeaks)
	assert.Equal(t, 0, s.Invalid)
	assert.Equal(t, 175.119, s.MinMz)
	assert.Equal(t, 400.2, s.MaxMz)
	assert.Equal(t, 740.0, s.TotalIon)
	assert.Equal(t, map[int]int{2: 1, 3: 1}, s.Charges)

	// only the first spectrum is displayed, after filtering
	assert.Contains(t, out.String(), "PEPTIDEK/2")
	assert.Contains(t, out.String(), "Displayed 1 out of 1 data points")
	assert.NotContains(t, out.String(), "AMGK/3")

	out.Reset()
	printSummary(&out, s, true)
	assert.Contains(t, out.String(), "Spectra:   2 (2 with precursor)")
	assert.Contains(t, out.String(), "Filtered:  2 peaks kept")
	assert.Contains(t, out.String(), "m/z range: 175.1190 - 400.2000")
	assert.Contains(t, out.String(), "  +3: 1")
}

func TestSummarizeLibraryReadError(t *testing.T) {
	logger = zap.NewNop()

	rd := msp.NewReader(strings.NewReader("Name: PEPTIDEK/2\nNum peaks: 1\nabc\tdef\n"), nil)
	_, err := summarizeLibrary(rd, filter.DefaultConfig(), 0, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestExecuteSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.msp")
	require.NoError(t, os.WriteFile(path, []byte(testLibrary), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"summarize", "-i", path, "--noise", "global", "--log-level", "error"})
	require.NoError(t, Execute())

	assert.Equal(t, string(filter.MethodGlobal), cfg.Filter.Method)
	assert.Contains(t, out.String(), "Filtered:  2 peaks kept")
}

func TestExecuteConfigShow(t *testing.T) {
	t.Setenv("ISOSCAN_MATCH_TOLERANCE", "0.02Da")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "show", "--log-level", "warn"})
	require.NoError(t, Execute())

	assert.Contains(t, out.String(), "log_level: warn")
	assert.Contains(t, out.String(), "tolerance: 0.02Da")
}

func TestBindCommandFlags(t *testing.T) {
	require.NoError(t, bindCommandFlags(scoreCmd))
	require.NoError(t, scoreCmd.Flags().Set("max-charge", "2"))
	assert.Equal(t, 2, v.GetInt("match.max_charge"))
}
