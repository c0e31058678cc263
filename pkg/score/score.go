// Package score computes similarity between theoretical isotope envelopes and
// the peaks observed for them in a spectrum.
package score

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/isoscan/pkg/core"
)

// Scores holds the three similarity metrics for one isotope envelope.
type Scores struct {
	Found       bool // false when the most abundant isotope had no peak
	Correlation float64
	Fit         float64
	Cosine      float64
}

// Pearson returns the sample correlation coefficient of t and o. Degenerate
// input (length mismatch, fewer than two values, zero variance) yields 0.
func Pearson(t, o []float64) float64 {
	if len(t) != len(o) || len(t) < 2 {
		return 0
	}
	r := stat.Correlation(t, o, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// Fit returns 1 minus the sum of squared differences between t and o,
// normalised by the sum of squares of t. A perfect match scores 1.
func Fit(t, o []float64) float64 {
	if len(t) != len(o) {
		return 0
	}
	sumSqTheo := floats.Dot(t, t)
	if sumSqTheo == 0 {
		return 0
	}
	diff := make([]float64, len(t))
	floats.SubTo(diff, o, t)
	return 1 - floats.Dot(diff, diff)/sumSqTheo
}

// Cosine returns the cosine of the angle between t and o, or 0 when either is zero.
func Cosine(t, o []float64) float64 {
	if len(t) != len(o) {
		return 0
	}
	nt, no := floats.Norm(t, 2), floats.Norm(o, 2)
	if nt == 0 || no == 0 {
		return 0
	}
	return floats.Dot(t, o) / (nt * no)
}

// Observed returns the intensities of observed peaks, with 0 for missing slots.
func Observed(peaks []*core.Peak) []float64 {
	out := make([]float64, len(peaks))
	for i, p := range peaks {
		if p != nil {
			out[i] = p.Intensity
		}
	}
	return out
}

// NormalizeByMax scales v in place so its largest entry is 1. A zero maximum
// leaves every entry at 0.
func NormalizeByMax(v []float64) []float64 {
	if len(v) == 0 {
		return v
	}
	maxVal := floats.Max(v)
	if maxVal == 0 {
		for i := range v {
			v[i] = 0
		}
		return v
	}
	floats.Scale(1/maxVal, v)
	return v
}

// FromPeaks scores extracted isotope peaks against env. A nil extraction
// scores 0 correlation, 0 cosine and a fit of 1.
func FromPeaks(env *core.IsotopomerEnvelope, observed []*core.Peak) Scores {
	if observed == nil {
		return Scores{Fit: 1}
	}

	theo := env.RelativeIntensities()
	obs := Observed(observed)
	s := Scores{
		Found:       true,
		Correlation: Pearson(theo, obs),
		Cosine:      Cosine(theo, obs),
	}
	s.Fit = Fit(theo, NormalizeByMax(obs))
	return s
}

// Evaluate extracts the isotope peaks of ion once and computes all three metrics.
func Evaluate(spec *core.Spectrum, ion core.Ion, env *core.IsotopomerEnvelope, tol core.Tolerance, threshold float64) Scores {
	return FromPeaks(env, spec.AllIsotopePeaks(ion, env, tol, threshold))
}

// CorrelationScore is the Pearson correlation between env and its observed peaks.
func CorrelationScore(spec *core.Spectrum, ion core.Ion, env *core.IsotopomerEnvelope, tol core.Tolerance, threshold float64) float64 {
	observed := spec.AllIsotopePeaks(ion, env, tol, threshold)
	if observed == nil {
		return 0
	}
	return Pearson(env.RelativeIntensities(), Observed(observed))
}

// FitScore is the normalised fit between env and its max-normalised observed peaks.
func FitScore(spec *core.Spectrum, ion core.Ion, env *core.IsotopomerEnvelope, tol core.Tolerance, threshold float64) float64 {
	observed := spec.AllIsotopePeaks(ion, env, tol, threshold)
	if observed == nil {
		return 1
	}
	return Fit(env.RelativeIntensities(), NormalizeByMax(Observed(observed)))
}

// CosineScore is the cosine similarity between env and its observed peaks.
func CosineScore(spec *core.Spectrum, ion core.Ion, env *core.IsotopomerEnvelope, tol core.Tolerance, threshold float64) float64 {
	observed := spec.AllIsotopePeaks(ion, env, tol, threshold)
	if observed == nil {
		return 0
	}
	return Cosine(env.RelativeIntensities(), Observed(observed))
}
