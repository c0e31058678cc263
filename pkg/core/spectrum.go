// Package core provides the spectrum model, peak lookup, tolerance windows and
// isotope envelope matching used by isoscan.
package core

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// ErrInvalidInput is the failure category for inputs rejected at construction time.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError represents an error found while validating a spectrum or envelope.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Peak represents a single centroided m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// Spectrum represents a single mass spectrum with its scan metadata.
// Peaks are kept sorted by m/z in ascending order.
type Spectrum struct {
	ScanNum         int
	NativeID        string
	MsLevel         int
	ElutionTime     float64 // minutes
	TotalIonCurrent float64
	Peaks           PeakList

	// Product is set for MS/MS spectra only
	Product *ProductInfo

	// Internal tracking
	SourceFile   string
	SourceFormat string // msp, sptxt
}

// ProductInfo carries the data only a product (MSn) spectrum has.
type ProductInfo struct {
	ActivationMethod ActivationMethod
	Precursor        PrecursorInfo
}

// PrecursorInfo describes the precursor ion a product spectrum was acquired from.
type PrecursorInfo struct {
	MZ              float64
	Charge          int
	Sequence        string
	Modifications   []Modification
	CollisionEnergy *float64
	RetentionTime   *float64 // RT or iRT
	MassOffset      float64
	CompoundClass   string
}

// NewSpectrum builds a spectrum from parallel m/z and intensity arrays.
func NewSpectrum(mz, intensity []float64, scanNum int) (*Spectrum, error) {
	if len(mz) != len(intensity) {
		return nil, &ValidationError{
			Field:   "Spectrum",
			Message: fmt.Sprintf("m/z array has %d values but intensity array has %d", len(mz), len(intensity)),
		}
	}

	peaks := make(PeakList, len(mz))
	for i := range mz {
		peaks[i] = Peak{MZ: mz[i], Intensity: intensity[i]}
	}
	return NewSpectrumFromPeaks(peaks, scanNum)
}

// NewSpectrumFromPeaks builds a spectrum owning a sorted copy of peaks.
// Peaks with a NaN or infinite m/z or intensity are rejected.
func NewSpectrumFromPeaks(peaks []Peak, scanNum int) (*Spectrum, error) {
	for i, peak := range peaks {
		if !isFinite(peak.MZ) || !isFinite(peak.Intensity) {
			return nil, &ValidationError{
				Field:   "Spectrum",
				Message: fmt.Sprintf("peak %d has non-finite value (%v, %v)", i, peak.MZ, peak.Intensity),
			}
		}
	}

	owned := make(PeakList, len(peaks))
	copy(owned, peaks)

	s := &Spectrum{ScanNum: scanNum, MsLevel: 1, Peaks: owned}
	s.SortPeaks()
	return s, nil
}

// MustSpectrumFromPeaks is like NewSpectrumFromPeaks but panics on error.
func MustSpectrumFromPeaks(peaks []Peak, scanNum int) *Spectrum {
	s, err := NewSpectrumFromPeaks(peaks, scanNum)
	if err != nil {
		panic(err)
	}
	return s
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NewProductSpectrum builds an MS/MS spectrum. msLevel values below 2 are raised to 2.
func NewProductSpectrum(mz, intensity []float64, scanNum, msLevel int, info ProductInfo) (*Spectrum, error) {
	s, err := NewSpectrum(mz, intensity, scanNum)
	if err != nil {
		return nil, err
	}
	s.SetProduct(info, msLevel)
	return s, nil
}

// SetProduct attaches product information and keeps MsLevel at 2 or above.
func (s *Spectrum) SetProduct(info ProductInfo, msLevel int) {
	if msLevel < 2 {
		msLevel = 2
	}
	s.Product = &info
	s.MsLevel = msLevel
}

// IsProduct reports whether the spectrum carries MS/MS information.
func (s *Spectrum) IsProduct() bool {
	return s.Product != nil
}

// Clone returns a copy that shares scalar metadata but owns its peak storage.
func (s *Spectrum) Clone() *Spectrum {
	c := *s
	c.Peaks = make(PeakList, len(s.Peaks))
	copy(c.Peaks, s.Peaks)
	if s.Product != nil {
		p := *s.Product
		c.Product = &p
	}
	return &c
}

// WithPeaks returns a clone whose peaks are replaced by a sorted copy of peaks.
func (s *Spectrum) WithPeaks(peaks []Peak) *Spectrum {
	c := *s
	c.Peaks = make(PeakList, len(peaks))
	copy(c.Peaks, peaks)
	if s.Product != nil {
		p := *s.Product
		c.Product = &p
	}
	c.SortPeaks()
	return &c
}

// Validate checks that a spectrum meets all requirements for processing.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.MsLevel < 1 {
		errs = append(errs, "ms level must be at least 1")
	}
	if s.Product != nil && s.MsLevel < 2 {
		errs = append(errs, "product spectrum must have ms level of at least 2")
	}
	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	return s.Peaks.IsSorted()
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// SumIntensities returns the summed intensity of all peaks.
func (s *Spectrum) SumIntensities() float64 {
	total := 0.0
	for _, p := range s.Peaks {
		total += p.Intensity
	}
	return total
}

// Name returns "Sequence/Charge" for library spectra and "scan=N" otherwise.
func (s *Spectrum) Name() string {
	if s.Product != nil && s.Product.Precursor.Sequence != "" {
		return fmt.Sprintf("%s/%d", s.Product.Precursor.Sequence, s.Product.Precursor.Charge)
	}
	return fmt.Sprintf("scan=%d", s.ScanNum)
}

// Display writes at most maxPoints evenly spaced peaks as tab-separated text,
// followed by a line telling how many points were shown. maxPoints <= 0 shows all.
func (s *Spectrum) Display(w io.Writer, maxPoints int) error {
	step := 1
	if maxPoints > 0 {
		step = int(math.Round(float64(len(s.Peaks)) / float64(maxPoints)))
		if step < 1 {
			step = 1
		}
	}

	var sb strings.Builder
	sb.WriteString("m/z\tIntensity\n")

	shown := 0
	for i, peak := range s.Peaks {
		if i%step != 0 {
			continue
		}
		fmt.Fprintf(&sb, "%v\t%v\n", peak.MZ, peak.Intensity)
		shown++
	}
	fmt.Fprintf(&sb, "Displayed %d out of %d data points\n", shown, len(s.Peaks))

	_, err := io.WriteString(w, sb.String())
	return err
}
