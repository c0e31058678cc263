package core

import (
	"errors"
	"math"
	"testing"
)

var testIon = Ion{MonoisotopicMass: 1000, Charge: 1}

func testEnvelope(t *testing.T) *IsotopomerEnvelope {
	t.Helper()
	env, err := NewIsotopomerEnvelope([]float64{0.6, 1.0, 0.7, 0.3, 0.05}, 1)
	if err != nil {
		t.Fatalf("NewIsotopomerEnvelope() error = %v", err)
	}
	return env
}

// isotopeSpectrum holds peaks for isotopes 0-3 of testIon plus noise. drop
// removes the peaks belonging to the listed isotope indexes.
func isotopeSpectrum(drop ...int) *Spectrum {
	dropped := map[int]bool{}
	for _, d := range drop {
		dropped[d] = true
	}

	peaks := []Peak{{MZ: 1000.5, Intensity: 100}, {MZ: 1006, Intensity: 20}}
	add := func(iso int, offset, intensity float64) {
		if !dropped[iso] {
			peaks = append(peaks, Peak{MZ: testIon.IsotopeMz(iso) + offset, Intensity: intensity})
		}
	}
	add(0, 0, 600)
	add(1, 0, 1000)
	add(1, 0.005, 50)
	add(2, -0.004, 900)
	add(2, 0, 700)
	add(3, 0, 300)
	return MustSpectrumFromPeaks(peaks, 1)
}

func TestIonIsotopeMz(t *testing.T) {
	ion := Ion{MonoisotopicMass: 1000, Charge: 2}
	want := (1000+C13MinusC12)/2 + ProtonMass
	if got := ion.IsotopeMz(1); math.Abs(got-want) > 1e-12 {
		t.Errorf("IsotopeMz(1) = %v, want %v", got, want)
	}
	if got := ion.MonoMz(); math.Abs(got-(500+ProtonMass)) > 1e-12 {
		t.Errorf("MonoMz() = %v", got)
	}
}

func TestNewIsotopomerEnvelopeInvalid(t *testing.T) {
	tests := []struct {
		name     string
		relative []float64
		anchor   int
	}{
		{"empty", nil, 0},
		{"anchor below range", []float64{1}, -1},
		{"anchor above range", []float64{1, 0.5}, 2},
		{"negative intensity", []float64{1, -0.5}, 0},
		{"NaN intensity", []float64{1, math.NaN()}, 0},
		{"zero anchor", []float64{0, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIsotopomerEnvelope(tt.relative, tt.anchor)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestEnvelopeFromIntensities(t *testing.T) {
	env, err := EnvelopeFromIntensities([]float64{2, 4, 1})
	if err != nil {
		t.Fatalf("EnvelopeFromIntensities() error = %v", err)
	}
	if env.MostAbundantIndex() != 1 {
		t.Errorf("Expected anchor 1, got %d", env.MostAbundantIndex())
	}
	want := []float64{0.5, 1, 0.25}
	for i, w := range want {
		if env.Relative(i) != w {
			t.Errorf("Relative(%d) = %v, want %v", i, env.Relative(i), w)
		}
	}

	if _, err := EnvelopeFromIntensities([]float64{0, 0}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for all-zero intensities, got %v", err)
	}
}

func TestEnvelopeIsImmutable(t *testing.T) {
	src := []float64{1, 0.5}
	env, err := NewIsotopomerEnvelope(src, 0)
	if err != nil {
		t.Fatal(err)
	}
	src[1] = 9
	out := env.RelativeIntensities()
	out[0] = 7
	if env.Relative(0) != 1 || env.Relative(1) != 0.5 {
		t.Errorf("Envelope changed through caller slices")
	}
}

func TestContainsIon(t *testing.T) {
	env := testEnvelope(t)
	tol := NewPpmTolerance(10)

	tests := []struct {
		name      string
		spec      *Spectrum
		threshold float64
		want      bool
	}{
		{"all isotopes present", isotopeSpectrum(), 0.1, true},
		{"anchor missing", isotopeSpectrum(1), 0.1, false},
		{"lower isotope missing", isotopeSpectrum(0), 0.1, false},
		{"upper isotope missing", isotopeSpectrum(3), 0.1, false},
		{"missing isotope below threshold", isotopeSpectrum(3), 0.5, true},
		{"only anchor with high threshold", isotopeSpectrum(0, 2, 3), 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.ContainsIon(testIon, env, tol, tt.threshold); got != tt.want {
				t.Errorf("ContainsIon() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainsIonRunsOutOfPeaks(t *testing.T) {
	env := testEnvelope(t)
	spec := MustSpectrumFromPeaks([]Peak{{MZ: testIon.IsotopeMz(1), Intensity: 10}}, 1)
	if spec.ContainsIon(testIon, env, NewPpmTolerance(10), DefaultRelativeIntensityThreshold) {
		t.Errorf("Expected false when required isotopes have no peaks at all")
	}
}

func TestAllIsotopePeaks(t *testing.T) {
	env := testEnvelope(t)
	tol := NewPpmTolerance(10)

	observed := isotopeSpectrum().AllIsotopePeaks(testIon, env, tol, DefaultRelativeIntensityThreshold)
	if len(observed) != env.Len() {
		t.Fatalf("Expected %d slots, got %d", env.Len(), len(observed))
	}

	wantIntensity := []float64{600, 1000, 900, 300}
	for i, w := range wantIntensity {
		if observed[i] == nil {
			t.Fatalf("Slot %d is nil", i)
		}
		if observed[i].Intensity != w {
			t.Errorf("Slot %d intensity = %v, want %v", i, observed[i].Intensity, w)
		}
		minMz, maxMz := tol.Window(testIon.IsotopeMz(i))
		if observed[i].MZ < minMz || observed[i].MZ > maxMz {
			t.Errorf("Slot %d m/z %v outside [%v, %v]", i, observed[i].MZ, minMz, maxMz)
		}
	}
	if observed[4] != nil {
		t.Errorf("Expected nil for isotope below threshold, got %v", observed[4])
	}
}

func TestAllIsotopePeaksMissingSlots(t *testing.T) {
	env := testEnvelope(t)
	tol := NewPpmTolerance(10)

	observed := isotopeSpectrum(0, 3).AllIsotopePeaks(testIon, env, tol, 0)
	if observed == nil {
		t.Fatal("Expected partial result when anchor is present")
	}
	if observed[0] != nil || observed[3] != nil || observed[4] != nil {
		t.Errorf("Expected nil slots for missing isotopes, got %v %v %v", observed[0], observed[3], observed[4])
	}
	if observed[2] == nil || observed[2].Intensity != 900 {
		t.Errorf("Expected best isotope-2 peak, got %v", observed[2])
	}

	if got := isotopeSpectrum(1).AllIsotopePeaks(testIon, env, tol, 0.1); got != nil {
		t.Errorf("Expected nil without anchor, got %v", got)
	}
}

func TestAllIsotopePeaksByMass(t *testing.T) {
	env := testEnvelope(t)
	spec := isotopeSpectrum()

	byIon := spec.AllIsotopePeaks(testIon, env, NewPpmTolerance(10), 0.1)
	byMass := spec.AllIsotopePeaks(Ion{MonoisotopicMass: 1000, Charge: 1}, env, NewPpmTolerance(10), 0.1)
	for i := range byIon {
		if (byIon[i] == nil) != (byMass[i] == nil) || (byIon[i] != nil && *byIon[i] != *byMass[i]) {
			t.Errorf("Slot %d differs", i)
		}
	}
}
