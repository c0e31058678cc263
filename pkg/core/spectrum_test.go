package core

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestSpectrumValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    *Spectrum
		wantErr bool
	}{
		{
			name: "valid spectrum",
			spec: &Spectrum{
				MsLevel: 1,
				Peaks: PeakList{
					{MZ: 100.0, Intensity: 1000.0},
					{MZ: 200.0, Intensity: 2000.0},
				},
			},
			wantErr: false,
		},
		{
			name: "product spectrum at ms level 1",
			spec: &Spectrum{
				MsLevel: 1,
				Product: &ProductInfo{},
				Peaks:   PeakList{{MZ: 100.0, Intensity: 1000.0}},
			},
			wantErr: true,
		},
		{
			name:    "no peaks",
			spec:    &Spectrum{MsLevel: 1, Peaks: PeakList{}},
			wantErr: true,
		},
		{
			name: "unsorted peaks",
			spec: &Spectrum{
				MsLevel: 1,
				Peaks: PeakList{
					{MZ: 200.0, Intensity: 2000.0},
					{MZ: 100.0, Intensity: 1000.0},
				},
			},
			wantErr: true,
		},
		{
			name: "NaN m/z",
			spec: &Spectrum{
				MsLevel: 1,
				Peaks:   PeakList{{MZ: math.NaN(), Intensity: 1000.0}},
			},
			wantErr: true,
		},
		{
			name: "negative intensity",
			spec: &Spectrum{
				MsLevel: 1,
				Peaks:   PeakList{{MZ: 100.0, Intensity: -1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() error %v does not match ErrInvalidInput", err)
			}
		})
	}
}

func TestNewSpectrum(t *testing.T) {
	spec, err := NewSpectrum([]float64{300, 100, 200}, []float64{1, 2, 3}, 7)
	if err != nil {
		t.Fatalf("NewSpectrum() error = %v", err)
	}

	if spec.ScanNum != 7 {
		t.Errorf("Expected scan 7, got %d", spec.ScanNum)
	}
	if spec.MsLevel != 1 {
		t.Errorf("Expected default ms level 1, got %d", spec.MsLevel)
	}

	expected := []Peak{{100, 2}, {200, 3}, {300, 1}}
	for i, peak := range spec.Peaks {
		if peak != expected[i] {
			t.Errorf("Peak %d: expected %v, got %v", i, expected[i], peak)
		}
	}
}

func TestNewSpectrumLengthMismatch(t *testing.T) {
	_, err := NewSpectrum([]float64{100, 200}, []float64{1}, 1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestNewSpectrumRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name      string
		mz        []float64
		intensity []float64
	}{
		{"NaN intensity", []float64{100, 100.1, 100.2, 200, 200.1, 200.2}, []float64{math.NaN(), 5, 5, 1, 1, 100}},
		{"infinite intensity", []float64{100, 200}, []float64{1, math.Inf(1)}},
		{"NaN m/z", []float64{math.NaN(), 200}, []float64{1, 2}},
		{"infinite m/z", []float64{100, math.Inf(-1)}, []float64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewSpectrum(tt.mz, tt.intensity, 1)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Expected ErrInvalidInput, got %v", err)
			}
			if spec != nil {
				t.Errorf("Expected nil spectrum on error")
			}

			peaks := make([]Peak, len(tt.mz))
			for i := range tt.mz {
				peaks[i] = Peak{MZ: tt.mz[i], Intensity: tt.intensity[i]}
			}
			var vErr *ValidationError
			if _, err := NewSpectrumFromPeaks(peaks, 1); !errors.As(err, &vErr) {
				t.Errorf("NewSpectrumFromPeaks() expected *ValidationError, got %v", err)
			}
		})
	}
}

func TestMustSpectrumFromPeaksPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic for NaN intensity")
		}
	}()
	MustSpectrumFromPeaks([]Peak{{MZ: 100, Intensity: math.NaN()}}, 1)
}

func TestNewSpectrumFromPeaksOwnsStorage(t *testing.T) {
	peaks := []Peak{{MZ: 200, Intensity: 1}, {MZ: 100, Intensity: 2}}
	spec := MustSpectrumFromPeaks(peaks, 3)

	peaks[0].Intensity = 99
	if spec.Peaks[1].Intensity != 1 {
		t.Errorf("Spectrum peaks changed through caller slice")
	}
	if !spec.ArePeaksSorted() {
		t.Errorf("Expected sorted peaks")
	}
}

func TestNewProductSpectrum(t *testing.T) {
	spec, err := NewProductSpectrum([]float64{100}, []float64{1}, 5, 1, ProductInfo{
		ActivationMethod: ActivationHCD,
		Precursor:        PrecursorInfo{MZ: 500.2, Charge: 2, Sequence: "PEPTIDE"},
	})
	if err != nil {
		t.Fatalf("NewProductSpectrum() error = %v", err)
	}
	if spec.MsLevel != 2 {
		t.Errorf("Expected ms level raised to 2, got %d", spec.MsLevel)
	}
	if !spec.IsProduct() {
		t.Errorf("Expected product spectrum")
	}
	if spec.Name() != "PEPTIDE/2" {
		t.Errorf("Expected name PEPTIDE/2, got %s", spec.Name())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	spec := MustSpectrumFromPeaks([]Peak{{100, 1}, {200, 2}}, 11)
	spec.ElutionTime = 12.5
	spec.SetProduct(ProductInfo{Precursor: PrecursorInfo{Charge: 2}}, 2)

	clone := spec.Clone()
	clone.Peaks[0] = Peak{MZ: 150, Intensity: 5}
	clone.Product.Precursor.Charge = 3

	if spec.Peaks[0].MZ != 100 {
		t.Errorf("Clone shares peak storage with source")
	}
	if spec.Product.Precursor.Charge != 2 {
		t.Errorf("Clone shares product info with source")
	}
	if clone.ElutionTime != 12.5 || clone.ScanNum != 11 {
		t.Errorf("Clone lost scalar metadata")
	}
}

func TestSortPeaks(t *testing.T) {
	spec := &Spectrum{
		Peaks: PeakList{
			{MZ: 300.0, Intensity: 100.0},
			{MZ: 100.0, Intensity: 200.0},
			{MZ: 200.0, Intensity: 150.0},
		},
	}

	spec.SortPeaks()

	expected := []float64{100.0, 200.0, 300.0}
	for i, peak := range spec.Peaks {
		if peak.MZ != expected[i] {
			t.Errorf("Peak %d: expected m/z %.1f, got %.1f", i, expected[i], peak.MZ)
		}
	}
}

func TestSpectrumName(t *testing.T) {
	spec := &Spectrum{ScanNum: 42}
	if name := spec.Name(); name != "scan=42" {
		t.Errorf("Expected name scan=42, got %s", name)
	}
}

func TestDisplay(t *testing.T) {
	var peaks []Peak
	for i := 0; i < 100; i++ {
		peaks = append(peaks, Peak{MZ: float64(100 + i), Intensity: 1})
	}
	spec := MustSpectrumFromPeaks(peaks, 1)

	var buf bytes.Buffer
	if err := spec.Display(&buf, 10); err != nil {
		t.Fatalf("Display() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "m/z\tIntensity\n") {
		t.Errorf("Missing header: %q", out)
	}
	if !strings.Contains(out, "Displayed 10 out of 100 data points") {
		t.Errorf("Unexpected footer: %q", out)
	}
}

func TestParseActivationMethod(t *testing.T) {
	if got := ParseActivationMethod("hcd"); got != ActivationHCD {
		t.Errorf("Expected HCD, got %v", got)
	}
	if got := ParseActivationMethod("ethcd"); got.String() != "EThcD" {
		t.Errorf("Expected EThcD, got %v", got)
	}
	if got := ParseActivationMethod("laser"); got != ActivationUnknown {
		t.Errorf("Expected Unknown, got %v", got)
	}
}
