// Package reader opens spectral libraries in any supported format and loads
// the per-peptide annotation tables applied while reading them.
package reader

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/isoscan/pkg/core"
	"github.com/ChrisMcGann/isoscan/pkg/reader/msp"
	"github.com/ChrisMcGann/isoscan/pkg/reader/sptxt"
)

// SpectrumReader streams spectra one at a time.
type SpectrumReader interface {
	Next() bool
	Spectrum() *core.Spectrum
	Err() error
}

// DetectFormat returns the library format implied by the file extension.
func DetectFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".msp":
		return "msp", nil
	case ".sptxt":
		return "sptxt", nil
	}
	return "", fmt.Errorf("cannot auto-detect format from extension '%s', please specify --from", ext)
}

// Open returns a reader for the named format. source is stamped on every
// spectrum as its SourceFile.
func Open(r io.Reader, format, source string, modDB *core.ModDatabase) (SpectrumReader, error) {
	switch strings.ToLower(format) {
	case "msp":
		rd := msp.NewReader(r, modDB)
		rd.SetSource(source)
		return rd, nil
	case "sptxt":
		rd := sptxt.NewReader(r, modDB)
		rd.SetSource(source)
		return rd, nil
	}
	return nil, fmt.Errorf("invalid input format '%s', must be msp or sptxt", format)
}

// Annotations maps peptide sequences to a precursor mass offset and a
// compound class.
type Annotations struct {
	MassOffsets     map[string]float64
	CompoundClasses map[string]string
}

// Apply stamps the annotation of the spectrum's sequence onto its precursor.
// A mass offset also shifts the precursor m/z.
func (a *Annotations) Apply(spec *core.Spectrum) {
	if a == nil || spec.Product == nil {
		return
	}
	p := &spec.Product.Precursor
	if offset, ok := a.MassOffsets[p.Sequence]; ok && offset != 0 {
		p.MassOffset = offset
		if p.Charge > 0 {
			p.MZ = core.CalculatePeptideMass(p.Sequence, p.Charge, p.Modifications) + offset/float64(p.Charge)
		}
	}
	if class, ok := a.CompoundClasses[p.Sequence]; ok {
		p.CompoundClass = class
	}
}

// LoadMassOffsets reads a "Sequence,massOffset" CSV with a header line.
func LoadMassOffsets(r io.Reader) (map[string]float64, error) {
	result := make(map[string]float64)
	err := scanPairs(r, "Sequence,massOffset", func(lineNum int, sequence, value string) error {
		offset, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass offset value '%s': %w", lineNum, value, err)
		}
		result[sequence] = offset
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LoadCompoundClasses reads a "Sequence,CompoundClass" CSV with a header line.
func LoadCompoundClasses(r io.Reader) (map[string]string, error) {
	result := make(map[string]string)
	err := scanPairs(r, "Sequence,CompoundClass", func(_ int, sequence, value string) error {
		result[sequence] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanPairs(r io.Reader, columns string, fn func(lineNum int, key, value string) error) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: expected 2 fields (%s), got %d", lineNum, columns, len(parts))
		}
		if err := fn(lineNum, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}
	return nil
}
