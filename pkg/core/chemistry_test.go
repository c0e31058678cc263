package core

import (
	"math"
	"strings"
	"testing"
)

func TestCalculatePeptideMass(t *testing.T) {
	tests := []struct {
		name          string
		sequence      string
		charge        int
		modifications []Modification
		wantMZ        float64
		tolerance     float64
	}{
		{
			name:      "simple peptide charge 1",
			sequence:  "AAA",
			charge:    1,
			wantMZ:    232.129,
			tolerance: 0.01,
		},
		{
			name:      "simple peptide charge 2",
			sequence:  "AAA",
			charge:    2,
			wantMZ:    116.568,
			tolerance: 0.01,
		},
		{
			name:     "peptide with modification",
			sequence: "PEPTIDE",
			charge:   2,
			modifications: []Modification{
				{Mass: 57.021464, Position: 0},
			},
			wantMZ:    429.2,
			tolerance: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePeptideMass(tt.sequence, tt.charge, tt.modifications)
			if math.Abs(got-tt.wantMZ) > tt.tolerance {
				t.Errorf("CalculatePeptideMass() = %.3f, want %.3f (within %.3f)", got, tt.wantMZ, tt.tolerance)
			}
		})
	}
}

func TestCalculateNeutralMass(t *testing.T) {
	got := CalculateNeutralMass("AAA", []Modification{{Mass: 57.021464, Position: 0}})
	if math.Abs(got-288.143) > 0.01 {
		t.Errorf("CalculateNeutralMass() = %.3f, want 288.143", got)
	}
}

func TestCompositionIon(t *testing.T) {
	comp := PeptideComposition("AAA")
	ion := comp.Ion(1, 0)
	if math.Abs(ion.MonoMz()-232.129) > 0.01 {
		t.Errorf("Ion().MonoMz() = %.3f, want 232.129", ion.MonoMz())
	}
	if comp != (Composition{C: 9, H: 17, N: 3, O: 4}) {
		t.Errorf("PeptideComposition(AAA) = %+v", comp)
	}
}

func TestIsotopomerEnvelopeSmallPeptide(t *testing.T) {
	env, err := PeptideComposition("PEPTIDE").IsotopomerEnvelope(0)
	if err != nil {
		t.Fatalf("IsotopomerEnvelope() error = %v", err)
	}
	if env.MostAbundantIndex() != 0 {
		t.Errorf("Expected monoisotopic peak to be most abundant, got %d", env.MostAbundantIndex())
	}
	if env.Relative(0) != 1 {
		t.Errorf("Relative(0) = %v, want 1", env.Relative(0))
	}
	if r := env.Relative(1); r < 0.3 || r > 0.5 {
		t.Errorf("Relative(1) = %v, want roughly 0.4", r)
	}
	if last := env.Relative(env.Len() - 1); last < envelopeTailCutoff {
		t.Errorf("Tail not trimmed, last relative = %v", last)
	}
}

func TestIsotopomerEnvelopeLargePeptide(t *testing.T) {
	env, err := PeptideComposition(strings.Repeat("PEPTIDEK", 40)).IsotopomerEnvelope(DefaultMaxIsotopes)
	if err != nil {
		t.Fatalf("IsotopomerEnvelope() error = %v", err)
	}
	if env.MostAbundantIndex() == 0 {
		t.Errorf("Expected a heavier isotope to be most abundant for a large peptide")
	}
	if env.Len() > DefaultMaxIsotopes {
		t.Errorf("Envelope length %d exceeds limit", env.Len())
	}
}

func TestRoundFloat(t *testing.T) {
	if got := RoundFloat(1.23456, 2); got != 1.23 {
		t.Errorf("RoundFloat() = %v", got)
	}
}
