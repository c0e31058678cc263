// Package msp provides streaming readers for MSP (NIST, Prosit) spectral libraries
package msp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/isoscan/pkg/core"
)

const maxLineSize = 16 * 1024 * 1024

// Reader provides streaming access to MSP format files
type Reader struct {
	scanner     *bufio.Scanner
	modDB       *core.ModDatabase
	source      string
	lineNum     int
	scanNum     int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new MSP reader. A nil modDB uses core.DefaultModDatabase.
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{
		scanner: scanner,
		modDB:   modDB,
	}
}

// SetSource records the file name stamped on every spectrum read.
func (r *Reader) SetSource(name string) {
	r.source = name
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil
	if r.err != nil {
		return false
	}

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// entry accumulates one library record before it becomes a Spectrum.
type entry struct {
	name       string
	precursor  core.PrecursorInfo
	activation core.ActivationMethod
	modsSeen   bool
	modString  string
	numPeaks   int
	peaks      []core.Peak
}

// readSpectrum reads a single spectrum entry from the MSP file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	var e entry
	started := false
	inPeaks := false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" {
			if !started {
				continue
			}
			if inPeaks {
				return nil, fmt.Errorf("line %d: entry %s ended after %d of %d peaks", r.lineNum, e.name, len(e.peaks), e.numPeaks)
			}
			continue
		}

		if inPeaks {
			peak, err := parsePeak(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			e.peaks = append(e.peaks, peak)
			if len(e.peaks) >= e.numPeaks {
				return r.finish(&e)
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'Key: value', got '%s'", r.lineNum, line)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			if started {
				return nil, fmt.Errorf("line %d: entry %s has no peak list", r.lineNum, e.name)
			}
			started = true
			if err := parseName(&e, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
		case "precursormz":
			if mz, err := strconv.ParseFloat(value, 64); err == nil {
				e.precursor.MZ = mz
			}
		case "comment":
			if err := r.parseComment(&e, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
		case "num peaks":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
			}
			if n < 0 {
				return nil, fmt.Errorf("line %d: invalid num peaks %d", r.lineNum, n)
			}
			e.numPeaks = n
			if n == 0 {
				return r.finish(&e)
			}
			inPeaks = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if started {
		return nil, fmt.Errorf("line %d: unexpected end of file in entry %s", r.lineNum, e.name)
	}
	return nil, io.EOF
}

// finish turns a completed entry into a product spectrum.
func (r *Reader) finish(e *entry) (*core.Spectrum, error) {
	if !e.modsSeen && e.modString != "" {
		mods, err := r.modDB.ParseModString(e.modString)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.name, err)
		}
		e.precursor.Modifications = mods
	}
	if e.precursor.MZ == 0 && e.precursor.Charge > 0 {
		e.precursor.MZ = core.CalculatePeptideMass(e.precursor.Sequence, e.precursor.Charge, e.precursor.Modifications)
	}

	r.scanNum++
	spec, err := core.NewSpectrumFromPeaks(e.peaks, r.scanNum)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.name, err)
	}
	spec.NativeID = e.name
	spec.SourceFile = r.source
	spec.SourceFormat = "msp"
	spec.SetProduct(core.ProductInfo{ActivationMethod: e.activation, Precursor: e.precursor}, 2)
	spec.TotalIonCurrent = spec.SumIntensities()
	return spec, nil
}

// parseName extracts sequence and charge from Name field (format: "SEQUENCE/CHARGE")
func parseName(e *entry, name string) error {
	e.name = name
	seq, chargeStr, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	// NIST names append "_<n>(...)" after the charge
	if i := strings.IndexFunc(chargeStr, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		chargeStr = chargeStr[:i]
	}
	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}

	e.precursor.Sequence = seq
	e.precursor.Charge = charge
	return nil
}

// parseComment extracts metadata from Comment field
func (r *Reader) parseComment(e *entry, comment string) error {
	// Comment format: key=value key=value...
	// Example: Parent=414.71 Collision_energy=35 Mods=1/-1,R,TMT_Pro ModString=SEQUENCE//TMT_Pro@R-1/4 iRT=61.01

	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil && e.precursor.MZ == 0 {
				e.precursor.MZ = mz
			}

		case "Collision_energy", "CollisionEnergy", "NCE":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				e.precursor.CollisionEnergy = &ce
			}

		case "iRT", "RetentionTime":
			if rt, err := strconv.ParseFloat(strings.Split(value, ",")[0], 64); err == nil {
				e.precursor.RetentionTime = &rt
			}

		case "Fragmentation", "Frag":
			e.activation = core.ParseActivationMethod(value)

		case "Mods":
			mods, _, err := r.modDB.ParseModsField(value)
			if err != nil {
				return fmt.Errorf("entry %s: %w", e.name, err)
			}
			e.precursor.Modifications = mods
			e.modsSeen = true

		case "ModString":
			// Format: SEQUENCE//Mod@Pos;Mod@Pos/Charge
			if _, mods, ok := strings.Cut(value, "//"); ok {
				mods, _, _ = strings.Cut(mods, "/")
				e.modString = mods
			}
		}
	}

	return nil
}

// parsePeak parses a single peak line (format: "mz\tintensity\t\"annotation\"").
// Annotations are not kept.
func parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}
	if math.IsNaN(mz) || math.IsInf(mz, 0) || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return core.Peak{}, fmt.Errorf("non-finite peak '%s'", line)
	}

	return core.Peak{MZ: mz, Intensity: intensity}, nil
}
