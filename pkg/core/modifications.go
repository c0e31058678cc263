package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Modification represents a peptide modification with position and mass shift.
type Modification struct {
	Mass     float64
	Position int    // 0-based position; -1 for N-term, len(seq) for C-term
	Name     string // Modification name (e.g., "Carbamidomethyl", "Oxidation")
}

// TotalModMass returns the sum of all modification masses.
func TotalModMass(mods []Modification) float64 {
	total := 0.0
	for _, mod := range mods {
		total += mod.Mass
	}
	return total
}

// ModString renders modifications as "mass@pos;mass@pos;...".
func ModString(mods []Modification) string {
	parts := make([]string, 0, len(mods))
	for _, mod := range mods {
		parts = append(parts, fmt.Sprintf("%.6f@%d", mod.Mass, mod.Position))
	}
	return strings.Join(parts, ";")
}

// ModDatabase maps modification names to mass shifts.
type ModDatabase struct {
	mods map[string]float64
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{mods: make(map[string]float64)}
}

// LoadFromCSV loads modifications from CSV with a header row (mod,massshift[,aa]).
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("error reading CSV header: %w", err)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 2 {
			return fmt.Errorf("line %d: expected at least 2 fields (mod,massshift), got %d", line, len(record))
		}

		massStr := strings.TrimSpace(record[1])
		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", line, massStr, err)
		}
		db.mods[strings.TrimSpace(record[0])] = mass
	}
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	mass, ok := db.mods[name]
	return mass, ok
}

// Add adds or updates a modification
func (db *ModDatabase) Add(name string, mass float64) {
	db.mods[name] = mass
}

// Len returns the number of known modifications.
func (db *ModDatabase) Len() int {
	return len(db.mods)
}

// ParseModString parses "57.021464@2;15.994915@8" or "Carbamidomethyl@C2;Oxidation@M8".
// Positions are 1-based in the input and 0-based in the result.
func (db *ModDatabase) ParseModString(modStr string) ([]Modification, error) {
	var mods []Modification
	for _, part := range strings.Split(modStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		nameOrMass, posStr, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("invalid modification format '%s', expected 'name@position' or 'mass@position'", part)
		}
		nameOrMass = strings.TrimSpace(nameOrMass)

		mass, err := strconv.ParseFloat(nameOrMass, 64)
		if err != nil {
			var known bool
			if mass, known = db.GetMass(nameOrMass); !known {
				return nil, fmt.Errorf("unknown modification '%s'", nameOrMass)
			}
		}

		position, err := ParseModPosition(posStr)
		if err != nil {
			return nil, fmt.Errorf("invalid position '%s': %w", posStr, err)
		}

		mods = append(mods, Modification{Mass: mass, Position: position, Name: nameOrMass})
	}
	return mods, nil
}

// ParseModsField parses the NIST/SpectraST comment form
// "2/-1,A,iTRAQ8plex/17,C,Carbamidomethyl": a count followed by
// position,residue,name triples. Positions are already 0-based. Names missing
// from the database are returned in unknown and left out of the result.
func (db *ModDatabase) ParseModsField(field string) (mods []Modification, unknown []string, err error) {
	parts := strings.Split(strings.TrimSpace(field), "/")
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid modification count '%s': %w", parts[0], err)
	}
	if count != len(parts)-1 {
		return nil, nil, fmt.Errorf("modification count %d does not match %d entries", count, len(parts)-1)
	}

	for _, entry := range parts[1:] {
		fields := strings.Split(entry, ",")
		if len(fields) != 3 {
			return nil, nil, fmt.Errorf("invalid modification entry '%s', expected 'position,residue,name'", entry)
		}
		pos, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("invalid modification position '%s': %w", fields[0], err)
		}
		name := fields[2]
		mass, ok := db.GetMass(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		mods = append(mods, Modification{Mass: mass, Position: pos, Name: name})
	}
	return mods, unknown, nil
}

// ParseModPosition parses "2", "C2" or "R-1" into a 0-based position; "-1" means N-terminal.
func ParseModPosition(posStr string) (int, error) {
	posStr = strings.TrimSpace(posStr)
	if strings.HasSuffix(posStr, "-1") {
		return -1, nil
	}

	posStr = strings.TrimLeft(posStr, "ACDEFGHIKLMNPQRSTVWY")
	pos, err := strconv.Atoi(posStr)
	if err != nil {
		return 0, fmt.Errorf("invalid position number: %w", err)
	}
	if pos > 0 {
		pos--
	}
	return pos, nil
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common unimod entries.
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()
	for name, mass := range map[string]float64{
		"Acetyl":          42.010565,
		"Amidated":        -0.984016,
		"Carbamidomethyl": 57.021464,
		"Carbamyl":        43.005814,
		"Deamidated":      0.984016,
		"Phospho":         79.966331,
		"Dehydrated":      -18.010565,
		"Glu->pyro-Glu":   -18.010565,
		"Gln->pyro-Glu":   -17.026549,
		"Methyl":          14.01565,
		"Oxidation":       15.994915,
		"Dimethyl":        28.0313,
		"Trimethyl":       42.04695,
		"HexNAc":          203.079373,
		"TMT":             229.162932,
		"TMT6plex":        229.162932,
		"TMTPro":          304.207146,
		"TMT_Pro":         304.207146,
		"iTRAQ4plex":      144.102063,
		"iTRAQ8plex":      304.205360,
	} {
		db.Add(name, mass)
	}
	return db
}
