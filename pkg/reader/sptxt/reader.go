// Package sptxt provides streaming readers for SPTXT (SpectraST) format spectral libraries
package sptxt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/isoscan/pkg/core"
)

const maxLineSize = 16 * 1024 * 1024

// inlineMod matches "n[305]" or "C[160]" inside a SpectraST peptide name.
var inlineMod = regexp.MustCompile(`([a-zA-Z]?)\[(\d+(?:\.\d+)?)\]`)

// Reader provides streaming access to SPTXT format files
type Reader struct {
	scanner     *bufio.Scanner
	modDB       *core.ModDatabase
	source      string
	lineNum     int
	scanNum     int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new SPTXT reader. A nil modDB uses core.DefaultModDatabase.
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

type entry struct {
	name       string
	libID      string
	precursor  core.PrecursorInfo
	activation core.ActivationMethod
	numPeaks   int
	peaks      []core.Peak
}

// readSpectrum reads a single spectrum entry from the SPTXT file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	var e entry
	started := false
	inPeaks := false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "###") {
			if inPeaks && line == "" {
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

		switch key {
		case "Name":
			if started {
				return nil, fmt.Errorf("line %d: entry %s has no peak list", r.lineNum, e.name)
			}
			started = true
			if err := parseName(&e, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
		case "LibID":
			e.libID = value
		case "PrecursorMZ":
			if mz, err := strconv.ParseFloat(value, 64); err == nil {
				e.precursor.MZ = mz
			}
		case "Comment":
			if err := r.parseComment(&e, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
		case "NumPeaks":
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

func (r *Reader) finish(e *entry) (*core.Spectrum, error) {
	if e.precursor.MZ == 0 && e.precursor.Charge > 0 {
		e.precursor.MZ = core.CalculatePeptideMass(e.precursor.Sequence, e.precursor.Charge, e.precursor.Modifications)
	}

	r.scanNum++
	spec, err := core.NewSpectrumFromPeaks(e.peaks, r.scanNum)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.name, err)
	}
	spec.NativeID = e.name
	if e.libID != "" {
		spec.NativeID = "LibID=" + e.libID
	}
	spec.SourceFile = r.source
	spec.SourceFormat = "sptxt"
	spec.SetProduct(core.ProductInfo{ActivationMethod: e.activation, Precursor: e.precursor}, 2)
	spec.TotalIonCurrent = spec.SumIntensities()
	return spec, nil
}

// parseName extracts sequence, charge, and modifications from Name field
// Format: "n[305]AAAAQDEITGDGTTTVVC[160]LVGELLR/3"
func parseName(e *entry, name string) error {
	e.name = name
	rawSeq, chargeStr, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}

	sequence, mods, err := parseInlineModifications(rawSeq)
	if err != nil {
		return fmt.Errorf("failed to parse modifications from sequence: %w", err)
	}

	e.precursor.Sequence = sequence
	e.precursor.Charge = charge
	e.precursor.Modifications = mods
	return nil
}

// parseInlineModifications strips n[305] and C[160] style tags from a
// sequence. Tags carry the nominal mass of the modified residue (or of the
// N-terminal H), so the returned mod masses are nominal mass deltas that
// the Comment Mods field refines when it names the modification.
func parseInlineModifications(rawSeq string) (string, []core.Modification, error) {
	var sequence strings.Builder
	var mods []core.Modification
	position := 0

	lastIdx := 0
	for _, match := range inlineMod.FindAllStringSubmatchIndex(rawSeq, -1) {
		plain := rawSeq[lastIdx:match[0]]
		sequence.WriteString(plain)
		position += len(plain)

		aa := rawSeq[match[2]:match[3]]
		tag := rawSeq[match[4]:match[5]]
		total, err := strconv.ParseFloat(tag, 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid modification mass '%s': %w", tag, err)
		}

		switch aa {
		case "n", "":
			mods = append(mods, core.Modification{Mass: total - core.MassH, Position: -1, Name: tag})
		case "c":
			mods = append(mods, core.Modification{Mass: total - core.MassO - core.MassH, Position: -2, Name: tag})
		default:
			delta := total - core.ResidueComposition(aa).MonoisotopicMass()
			sequence.WriteString(aa)
			mods = append(mods, core.Modification{Mass: delta, Position: position, Name: tag})
			position++
		}

		lastIdx = match[1]
	}

	sequence.WriteString(rawSeq[lastIdx:])
	seq := sequence.String()
	for i := range mods {
		if mods[i].Position == -2 {
			mods[i].Position = len(seq)
		}
	}
	return seq, mods, nil
}

// parseComment extracts metadata from Comment field
func (r *Reader) parseComment(e *entry, comment string) error {
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

		case "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				e.precursor.CollisionEnergy = &ce
			}

		case "RetentionTime":
			// May be comma-separated list, take first value
			if rt, err := strconv.ParseFloat(strings.Split(value, ",")[0], 64); err == nil {
				e.precursor.RetentionTime = &rt
			}

		case "FragmentationType", "Fragmentation":
			e.activation = core.ParseActivationMethod(value)

		case "Mods":
			named, _, err := r.modDB.ParseModsField(value)
			if err != nil {
				return fmt.Errorf("entry %s: %w", e.name, err)
			}
			e.precursor.Modifications = mergeNamedMods(e.precursor.Modifications, named)
		}
	}

	return nil
}

// mergeNamedMods replaces inline modifications with the exact masses and
// names of named ones at the same position and appends the rest.
func mergeNamedMods(inline, named []core.Modification) []core.Modification {
	for _, mod := range named {
		replaced := false
		for j := range inline {
			if inline[j].Position == mod.Position {
				inline[j] = mod
				replaced = true
				break
			}
		}
		if !replaced {
			inline = append(inline, mod)
		}
	}
	return inline
}

// parsePeak parses a single peak line
// Format: "mz\tintensity\tannotation\t...". Annotations are not kept.
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
