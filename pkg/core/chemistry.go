package core

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Atomic masses (monoisotopic)
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
)

// Natural isotope abundances, indexed by nominal mass offset from the lightest isotope.
var (
	abundanceC = []float64{0.9893, 0.0107}
	abundanceH = []float64{0.999885, 0.000115}
	abundanceN = []float64{0.99636, 0.00364}
	abundanceO = []float64{0.99757, 0.00038, 0.00205}
	abundanceS = []float64{0.9499, 0.0075, 0.0425, 0, 0.0001}
)

const (
	// DefaultMaxIsotopes bounds the length of generated envelopes.
	DefaultMaxIsotopes = 30
	// envelopeTailCutoff trims trailing isotopes below this relative intensity.
	envelopeTailCutoff = 1e-3
)

// Composition stores elemental composition.
type Composition struct {
	C, H, N, O, S int
}

// Water is the composition of H2O.
var Water = Composition{H: 2, O: 1}

// AminoAcidMasses maps amino acid one-letter codes to residue composition.
var AminoAcidMasses = map[rune]Composition{
	'A': {C: 3, H: 5, N: 1, O: 1, S: 0},
	'R': {C: 6, H: 12, N: 4, O: 1, S: 0},
	'N': {C: 4, H: 6, N: 2, O: 2, S: 0},
	'D': {C: 4, H: 5, N: 1, O: 3, S: 0},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3, S: 0},
	'Q': {C: 5, H: 8, N: 2, O: 2, S: 0},
	'G': {C: 2, H: 3, N: 1, O: 1, S: 0},
	'H': {C: 6, H: 7, N: 3, O: 1, S: 0},
	'I': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'L': {C: 6, H: 11, N: 1, O: 1, S: 0},
	'K': {C: 6, H: 12, N: 2, O: 1, S: 0},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1, S: 0},
	'P': {C: 5, H: 7, N: 1, O: 1, S: 0},
	'S': {C: 3, H: 5, N: 1, O: 2, S: 0},
	'T': {C: 4, H: 7, N: 1, O: 2, S: 0},
	'W': {C: 11, H: 10, N: 2, O: 1, S: 0},
	'Y': {C: 9, H: 9, N: 1, O: 2, S: 0},
	'V': {C: 5, H: 9, N: 1, O: 1, S: 0},
}

// Add returns the element-wise sum of two compositions.
func (c Composition) Add(o Composition) Composition {
	return Composition{C: c.C + o.C, H: c.H + o.H, N: c.N + o.N, O: c.O + o.O, S: c.S + o.S}
}

// MonoisotopicMass returns the neutral monoisotopic mass.
func (c Composition) MonoisotopicMass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS
}

// ResidueComposition sums residue compositions; unknown letters are ignored.
func ResidueComposition(residues string) Composition {
	var comp Composition
	for _, aa := range residues {
		if aaComp, ok := AminoAcidMasses[aa]; ok {
			comp = comp.Add(aaComp)
		}
	}
	return comp
}

// PeptideComposition returns the composition of an intact peptide (residues + water).
func PeptideComposition(sequence string) Composition {
	return ResidueComposition(sequence).Add(Water)
}

// CalculatePeptideMass computes monoisotopic mass of a peptide sequence
// including modifications, then returns the m/z for a given charge state.
func CalculatePeptideMass(sequence string, charge int, modifications []Modification) float64 {
	mass := CalculateNeutralMass(sequence, modifications)
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide
func CalculateNeutralMass(sequence string, modifications []Modification) float64 {
	mass := PeptideComposition(sequence).MonoisotopicMass()
	for _, mod := range modifications {
		mass += mod.Mass
	}
	return mass
}

// Ion returns the ion of this composition at charge, shifted by massShift Da.
func (c Composition) Ion(charge int, massShift float64) Ion {
	return Ion{MonoisotopicMass: c.MonoisotopicMass() + massShift, Charge: charge}
}

// IsotopomerEnvelope computes the theoretical isotope distribution of the
// composition by convolving natural element abundances. At most maxIsotopes
// entries are kept and the low tail is trimmed.
func (c Composition) IsotopomerEnvelope(maxIsotopes int) (*IsotopomerEnvelope, error) {
	if maxIsotopes <= 0 {
		maxIsotopes = DefaultMaxIsotopes
	}

	dist := []float64{1}
	dist = convolveTrunc(dist, powerDist(abundanceC, c.C, maxIsotopes), maxIsotopes)
	dist = convolveTrunc(dist, powerDist(abundanceH, c.H, maxIsotopes), maxIsotopes)
	dist = convolveTrunc(dist, powerDist(abundanceN, c.N, maxIsotopes), maxIsotopes)
	dist = convolveTrunc(dist, powerDist(abundanceO, c.O, maxIsotopes), maxIsotopes)
	dist = convolveTrunc(dist, powerDist(abundanceS, c.S, maxIsotopes), maxIsotopes)

	floats.Scale(1/floats.Max(dist), dist)

	last := len(dist) - 1
	for last > 0 && dist[last] < envelopeTailCutoff {
		last--
	}
	return EnvelopeFromIntensities(dist[:last+1])
}

// powerDist returns dist convolved with itself n times, by repeated squaring.
func powerDist(dist []float64, n, maxLen int) []float64 {
	result := []float64{1}
	base := dist
	for n > 0 {
		if n&1 == 1 {
			result = convolveTrunc(result, base, maxLen)
		}
		n >>= 1
		if n > 0 {
			base = convolveTrunc(base, base, maxLen)
		}
	}
	return result
}

// convolveTrunc is a direct linear convolution limited to the first maxLen terms.
func convolveTrunc(a, b []float64, maxLen int) []float64 {
	n := len(a) + len(b) - 1
	if n > maxLen {
		n = maxLen
	}
	out := make([]float64, n)
	for i, av := range a {
		if i >= n {
			break
		}
		for j, bv := range b {
			if i+j >= n {
				break
			}
			out[i+j] += av * bv
		}
	}
	return out
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
