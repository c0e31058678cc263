package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isoscan/pkg/core"
)

func librarySpectrum(seq string, charge int, mods []core.Modification, peaks []core.Peak) *core.Spectrum {
	spec := core.MustSpectrumFromPeaks(peaks, 1)
	spec.SetProduct(core.ProductInfo{
		ActivationMethod: core.ActivationHCD,
		Precursor:        core.PrecursorInfo{Sequence: seq, Charge: charge, Modifications: mods},
	}, 2)
	return spec
}

// envelopePeaks renders every isotope of the fragment as a peak scaled to base.
func envelopePeaks(t *testing.T, comp core.Composition, ion core.Ion, base float64) []core.Peak {
	t.Helper()
	env, err := comp.IsotopomerEnvelope(core.DefaultMaxIsotopes)
	require.NoError(t, err)

	var peaks []core.Peak
	for i := 0; i < env.Len(); i++ {
		peaks = append(peaks, core.Peak{MZ: ion.IsotopeMz(i), Intensity: base * env.Relative(i)})
	}
	return peaks
}

func findMatch(t *testing.T, matches []Match, lbl string) Match {
	t.Helper()
	for _, m := range matches {
		if m.Label == lbl {
			return m
		}
	}
	t.Fatalf("no match labelled %s", lbl)
	return Match{}
}

func TestLadderFindsPlantedFragments(t *testing.T) {
	seq := "PEPTIDEK"
	b3 := core.ResidueComposition("PEP")
	y2 := core.ResidueComposition("EK").Add(core.Water)

	var peaks []core.Peak
	peaks = append(peaks, envelopePeaks(t, b3, b3.Ion(1, 0), 1000)...)
	peaks = append(peaks, envelopePeaks(t, y2, y2.Ion(2, 0), 500)...)
	spec := librarySpectrum(seq, 3, nil, peaks)

	opts := DefaultOptions()
	opts.RelativeIntensityThreshold = 0 // walk the whole envelope
	matches, err := Ladder(spec, opts)
	require.NoError(t, err)
	// 7 cleavages, two series, charges 1 and 2
	assert.Len(t, matches, 7*2*2)

	m := findMatch(t, matches, "b3")
	assert.True(t, m.Contains)
	assert.True(t, m.Scores.Found)
	assert.InDelta(t, 1.0, m.Scores.Correlation, 1e-6)
	assert.InDelta(t, 1.0, m.Scores.Cosine, 1e-6)
	assert.Equal(t, IonB, m.Type)
	assert.Equal(t, 3, m.Length)

	m = findMatch(t, matches, "y2^2")
	assert.True(t, m.Contains)
	assert.Equal(t, 2, m.Ion.Charge)

	assert.False(t, findMatch(t, matches, "y2").Contains)
	assert.False(t, findMatch(t, matches, "b5").Contains)
	assert.Equal(t, 2, Count(matches))
}

func TestLadderModificationPlacement(t *testing.T) {
	mods := []core.Modification{
		{Mass: 304.207146, Position: -1, Name: "TMTPro"},
		{Mass: 15.994915, Position: 1, Name: "Oxidation"},
		{Mass: 1.0, Position: 3, Name: "Cterm"},
	}
	spec := librarySpectrum("AMGK", 2, mods, []core.Peak{{MZ: 100, Intensity: 1}})

	matches, err := Ladder(spec, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, matches, 3*2)

	b1 := findMatch(t, matches, "b1")
	assert.InDelta(t, core.ResidueComposition("A").MonoisotopicMass()+304.207146, b1.Ion.MonoisotopicMass, 1e-9)

	b2 := findMatch(t, matches, "b2")
	assert.InDelta(t, core.ResidueComposition("AM").MonoisotopicMass()+304.207146+15.994915, b2.Ion.MonoisotopicMass, 1e-9)

	y1 := findMatch(t, matches, "y1")
	want := core.ResidueComposition("K").Add(core.Water).MonoisotopicMass() + 1.0
	assert.InDelta(t, want, y1.Ion.MonoisotopicMass, 1e-9)

	y3 := findMatch(t, matches, "y3")
	want = core.ResidueComposition("MGK").Add(core.Water).MonoisotopicMass() + 15.994915 + 1.0
	assert.InDelta(t, want, y3.Ion.MonoisotopicMass, 1e-9)
}

func TestLadderMaxChargeOverride(t *testing.T) {
	spec := librarySpectrum("PEPTIDE", 2, nil, []core.Peak{{MZ: 100, Intensity: 1}})
	opts := DefaultOptions()
	opts.MaxCharge = 3

	matches, err := Ladder(spec, opts)
	require.NoError(t, err)
	assert.Len(t, matches, 6*2*3)
}

func TestLadderRejectsNonLibrarySpectra(t *testing.T) {
	ms1 := core.MustSpectrumFromPeaks([]core.Peak{{MZ: 100, Intensity: 1}}, 1)
	_, err := Ladder(ms1, DefaultOptions())
	assert.Error(t, err)

	noSeq := librarySpectrum("", 2, nil, nil)
	_, err = Ladder(noSeq, DefaultOptions())
	assert.Error(t, err)

	noCharge := librarySpectrum("PEPTIDE", 0, nil, nil)
	_, _, err = Precursor(noCharge, 0)
	assert.Error(t, err)
}

func TestPrecursor(t *testing.T) {
	mods := []core.Modification{{Mass: 57.021464, Position: 2, Name: "Carbamidomethyl"}}
	spec := librarySpectrum("ACDK", 2, mods, []core.Peak{{MZ: 100, Intensity: 1}})

	ion, env, err := Precursor(spec, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, ion.Charge)
	assert.InDelta(t, core.CalculateNeutralMass("ACDK", mods), ion.MonoisotopicMass, 1e-9)
	assert.InDelta(t, core.CalculatePeptideMass("ACDK", 2, mods), ion.MonoMz(), 1e-9)
	assert.Equal(t, 0, env.MostAbundantIndex())
}
