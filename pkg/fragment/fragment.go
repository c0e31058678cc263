// Package fragment enumerates the b/y fragment ladder of a library peptide
// and checks each fragment's isotope envelope against the product spectrum.
package fragment

import (
	"fmt"

	"github.com/ChrisMcGann/isoscan/pkg/core"
	"github.com/ChrisMcGann/isoscan/pkg/score"
)

// IonType is a fragment series.
type IonType int

const (
	IonB IonType = iota
	IonY
)

func (t IonType) String() string {
	if t == IonY {
		return "y"
	}
	return "b"
}

// Match is the outcome of looking for one fragment ion in a spectrum.
type Match struct {
	Label    string // e.g. "b3", "y7^2"
	Type     IonType
	Length   int // residues in the fragment
	Ion      core.Ion
	Contains bool
	Scores   score.Scores
}

// Options controls fragment enumeration and matching.
type Options struct {
	Tolerance                  core.Tolerance
	RelativeIntensityThreshold float64
	MaxIsotopes                int
	MaxCharge                  int // 0 = precursor charge - 1, at least 1
}

// DefaultOptions returns 10 ppm matching with the standard isotope threshold.
func DefaultOptions() Options {
	return Options{
		Tolerance:                  core.NewPpmTolerance(10),
		RelativeIntensityThreshold: core.DefaultRelativeIntensityThreshold,
		MaxIsotopes:                core.DefaultMaxIsotopes,
	}
}

func precursorInfo(spec *core.Spectrum) (*core.PrecursorInfo, error) {
	if !spec.IsProduct() {
		return nil, fmt.Errorf("spectrum %s is not a product spectrum", spec.Name())
	}
	p := &spec.Product.Precursor
	if p.Sequence == "" {
		return nil, fmt.Errorf("spectrum %s has no peptide sequence", spec.Name())
	}
	if p.Charge <= 0 {
		return nil, fmt.Errorf("spectrum %s has invalid precursor charge %d", spec.Name(), p.Charge)
	}
	return p, nil
}

// Precursor returns the precursor ion of a library spectrum and its
// theoretical envelope.
func Precursor(spec *core.Spectrum, maxIsotopes int) (core.Ion, *core.IsotopomerEnvelope, error) {
	p, err := precursorInfo(spec)
	if err != nil {
		return core.Ion{}, nil, err
	}

	comp := core.PeptideComposition(p.Sequence)
	env, err := comp.IsotopomerEnvelope(maxIsotopes)
	if err != nil {
		return core.Ion{}, nil, fmt.Errorf("precursor envelope for %s: %w", spec.Name(), err)
	}
	return comp.Ion(p.Charge, core.TotalModMass(p.Modifications)+p.MassOffset), env, nil
}

// Ladder enumerates every b and y fragment of the precursor peptide at
// charges 1..MaxCharge and matches each against spec.
func Ladder(spec *core.Spectrum, opts Options) ([]Match, error) {
	p, err := precursorInfo(spec)
	if err != nil {
		return nil, err
	}

	maxCharge := opts.MaxCharge
	if maxCharge <= 0 {
		maxCharge = max(1, p.Charge-1)
	}

	residues := []rune(p.Sequence)
	n := len(residues)
	matches := make([]Match, 0, 2*(n-1)*maxCharge)

	for length := 1; length < n; length++ {
		for _, t := range []IonType{IonB, IonY} {
			comp, shift := fragmentComposition(residues, p.Modifications, t, length)
			env, err := comp.IsotopomerEnvelope(opts.MaxIsotopes)
			if err != nil {
				return nil, fmt.Errorf("%s%d envelope for %s: %w", t, length, spec.Name(), err)
			}

			for z := 1; z <= maxCharge; z++ {
				ion := comp.Ion(z, shift)
				m := Match{
					Label:  label(t, length, z),
					Type:   t,
					Length: length,
					Ion:    ion,
				}
				m.Contains = spec.ContainsIon(ion, env, opts.Tolerance, opts.RelativeIntensityThreshold)
				m.Scores = score.Evaluate(spec, ion, env, opts.Tolerance, opts.RelativeIntensityThreshold)
				matches = append(matches, m)
			}
		}
	}
	return matches, nil
}

// fragmentComposition returns the residue composition of a fragment and the
// summed mass of the modifications it carries. N-terminal modifications
// (position -1) belong to b ions, C-terminal ones (position >= n) to y ions.
func fragmentComposition(residues []rune, mods []core.Modification, t IonType, length int) (core.Composition, float64) {
	n := len(residues)
	from, to := 0, length
	if t == IonY {
		from, to = n-length, n
	}

	comp := core.ResidueComposition(string(residues[from:to]))
	if t == IonY {
		comp = comp.Add(core.Water)
	}

	shift := 0.0
	for _, mod := range mods {
		pos := mod.Position
		switch {
		case pos < 0 && t == IonB:
			shift += mod.Mass
		case pos >= n && t == IonY:
			shift += mod.Mass
		case pos >= from && pos < to:
			shift += mod.Mass
		}
	}
	return comp, shift
}

func label(t IonType, length, charge int) string {
	if charge == 1 {
		return fmt.Sprintf("%s%d", t, length)
	}
	return fmt.Sprintf("%s%d^%d", t, length, charge)
}

// Count returns the number of matches whose envelope was found.
func Count(matches []Match) int {
	n := 0
	for _, m := range matches {
		if m.Contains {
			n++
		}
	}
	return n
}
