package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// C13MinusC12 is the mass spacing between consecutive isotope peaks.
const C13MinusC12 = 1.003354838

// DefaultRelativeIntensityThreshold is the theoretical relative intensity below
// which isotopes are not required to be observed.
const DefaultRelativeIntensityThreshold = 0.1

// Ion is a molecule of known monoisotopic mass at a given charge state.
type Ion struct {
	MonoisotopicMass float64
	Charge           int
}

// IsotopeMz returns the m/z of the isotope isotopeIndex steps above monoisotopic.
func (ion Ion) IsotopeMz(isotopeIndex int) float64 {
	return IsotopeMz(ion.MonoisotopicMass, ion.Charge, isotopeIndex)
}

// MonoMz returns the m/z of the monoisotopic peak.
func (ion Ion) MonoMz() float64 {
	return ion.IsotopeMz(0)
}

// IsotopeMz returns the m/z of an isotope of a neutral monoisotopic mass at charge.
func IsotopeMz(monoMass float64, charge, isotopeIndex int) float64 {
	return (monoMass+float64(isotopeIndex)*C13MinusC12)/float64(charge) + ProtonMass
}

// IsotopomerEnvelope is a theoretical isotope distribution. Index i holds the
// intensity of the isotope i steps above monoisotopic relative to the most
// abundant one.
type IsotopomerEnvelope struct {
	relative     []float64
	mostAbundant int
}

// NewIsotopomerEnvelope validates and copies relative intensities.
func NewIsotopomerEnvelope(relative []float64, mostAbundantIndex int) (*IsotopomerEnvelope, error) {
	if len(relative) == 0 {
		return nil, &ValidationError{Field: "IsotopomerEnvelope", Message: "envelope is empty"}
	}
	if mostAbundantIndex < 0 || mostAbundantIndex >= len(relative) {
		return nil, &ValidationError{
			Field:   "IsotopomerEnvelope",
			Message: fmt.Sprintf("most abundant index %d outside envelope of length %d", mostAbundantIndex, len(relative)),
		}
	}
	for i, v := range relative {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, &ValidationError{
				Field:   "IsotopomerEnvelope",
				Message: fmt.Sprintf("isotope %d has invalid relative intensity %v", i, v),
			}
		}
	}
	if relative[mostAbundantIndex] <= 0 {
		return nil, &ValidationError{
			Field:   "IsotopomerEnvelope",
			Message: "most abundant isotope must have positive intensity",
		}
	}

	env := &IsotopomerEnvelope{
		relative:     make([]float64, len(relative)),
		mostAbundant: mostAbundantIndex,
	}
	copy(env.relative, relative)
	return env, nil
}

// EnvelopeFromIntensities normalises raw isotope intensities to the most abundant one.
func EnvelopeFromIntensities(intensities []float64) (*IsotopomerEnvelope, error) {
	if len(intensities) == 0 {
		return nil, &ValidationError{Field: "IsotopomerEnvelope", Message: "envelope is empty"}
	}
	idx := floats.MaxIdx(intensities)
	maxVal := intensities[idx]
	if !(maxVal > 0) || math.IsInf(maxVal, 0) {
		return nil, &ValidationError{Field: "IsotopomerEnvelope", Message: "intensities must contain a positive finite maximum"}
	}

	relative := make([]float64, len(intensities))
	copy(relative, intensities)
	floats.Scale(1/maxVal, relative)
	return NewIsotopomerEnvelope(relative, idx)
}

// Len returns the number of isotopes in the envelope.
func (e *IsotopomerEnvelope) Len() int { return len(e.relative) }

// MostAbundantIndex returns the index of the anchor isotope.
func (e *IsotopomerEnvelope) MostAbundantIndex() int { return e.mostAbundant }

// Relative returns the relative intensity of isotope i.
func (e *IsotopomerEnvelope) Relative(i int) float64 { return e.relative[i] }

// RelativeIntensities returns a copy of the relative intensities.
func (e *IsotopomerEnvelope) RelativeIntensities() []float64 {
	out := make([]float64, len(e.relative))
	copy(out, e.relative)
	return out
}

// ContainsIon reports whether the spectrum holds a peak for every isotope of
// ion whose theoretical relative intensity is at least threshold. The walk
// starts at the most abundant isotope and moves outward in both directions,
// stopping in a direction at the first isotope below threshold.
func (s *Spectrum) ContainsIon(ion Ion, env *IsotopomerEnvelope, tol Tolerance, threshold float64) bool {
	peaks := s.Peaks
	anchor := env.mostAbundant
	anchorPeak := peaks.FindPeakIndexTol(ion.IsotopeMz(anchor), tol)
	if anchorPeak < 0 {
		return false
	}

	// go down
	cursor := anchorPeak
	for iso := anchor - 1; iso >= 0; iso-- {
		if env.relative[iso] < threshold {
			break
		}
		minMz, maxMz := tol.Window(ion.IsotopeMz(iso))
		matched := false
		for i := cursor - 1; i >= 0; i-- {
			if peaks[i].MZ < minMz {
				return false
			}
			if peaks[i].MZ <= maxMz {
				cursor = i
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	// go up
	cursor = anchorPeak
	for iso := anchor + 1; iso < len(env.relative); iso++ {
		if env.relative[iso] < threshold {
			break
		}
		minMz, maxMz := tol.Window(ion.IsotopeMz(iso))
		matched := false
		for i := cursor + 1; i < len(peaks); i++ {
			if peaks[i].MZ > maxMz {
				return false
			}
			if peaks[i].MZ >= minMz {
				cursor = i
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// AllIsotopePeaks returns, for every isotope index of env, the most intense
// observed peak within that isotope's tolerance window. Slots for isotopes that
// were not walked or had no peak are nil. The result is nil when the most
// abundant isotope itself has no peak.
func (s *Spectrum) AllIsotopePeaks(ion Ion, env *IsotopomerEnvelope, tol Tolerance, threshold float64) []*Peak {
	peaks := s.Peaks
	anchor := env.mostAbundant
	anchorPeak := peaks.FindPeakIndexTol(ion.IsotopeMz(anchor), tol)
	if anchorPeak < 0 {
		return nil
	}

	observed := make([]*Peak, len(env.relative))
	observed[anchor] = peakRef(peaks[anchorPeak])

	// go down
	cursor := anchorPeak - 1
	for iso := anchor - 1; iso >= 0; iso-- {
		if env.relative[iso] < threshold {
			break
		}
		minMz, maxMz := tol.Window(ion.IsotopeMz(iso))
		for i := cursor; i >= 0; i-- {
			if peaks[i].MZ < minMz {
				cursor = i
				break
			}
			if peaks[i].MZ <= maxMz {
				keepMoreIntense(&observed[iso], peaks[i])
			}
		}
	}

	// go up
	cursor = anchorPeak + 1
	for iso := anchor + 1; iso < len(env.relative); iso++ {
		if env.relative[iso] < threshold {
			break
		}
		minMz, maxMz := tol.Window(ion.IsotopeMz(iso))
		for i := cursor; i < len(peaks); i++ {
			if peaks[i].MZ > maxMz {
				cursor = i
				break
			}
			if peaks[i].MZ >= minMz {
				keepMoreIntense(&observed[iso], peaks[i])
			}
		}
	}

	return observed
}

func peakRef(p Peak) *Peak {
	return &p
}

func keepMoreIntense(slot **Peak, p Peak) {
	if *slot == nil || p.Intensity > (*slot).Intensity {
		*slot = peakRef(p)
	}
}
