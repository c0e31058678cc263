package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ToleranceUnit selects how a Tolerance value is interpreted.
type ToleranceUnit int

const (
	Ppm ToleranceUnit = iota // parts per million of the center value
	Da                       // absolute, in Daltons
	Th                       // absolute, in m/z units
)

func (u ToleranceUnit) String() string {
	switch u {
	case Ppm:
		return "ppm"
	case Da:
		return "Da"
	case Th:
		return "Th"
	}
	return "unknown"
}

// Tolerance is a mass tolerance specification.
type Tolerance struct {
	Value float64
	Unit  ToleranceUnit
}

// NewPpmTolerance returns a relative tolerance in parts per million.
func NewPpmTolerance(ppm float64) Tolerance {
	return Tolerance{Value: ppm, Unit: Ppm}
}

// NewDaTolerance returns an absolute tolerance in Daltons.
func NewDaTolerance(da float64) Tolerance {
	return Tolerance{Value: da, Unit: Da}
}

// AsMz returns the half-width of the window around mz, in m/z units.
func (t Tolerance) AsMz(mz float64) float64 {
	if t.Unit == Ppm {
		return mz * t.Value * 1e-6
	}
	return t.Value
}

// AsMass returns the half-width of the window around a neutral mass observed at charge.
func (t Tolerance) AsMass(mass float64, charge int) float64 {
	switch t.Unit {
	case Ppm:
		return mass * t.Value * 1e-6
	case Th:
		return t.Value * float64(charge)
	}
	return t.Value
}

// Window returns the [min, max] m/z interval around mz.
func (t Tolerance) Window(mz float64) (minMz, maxMz float64) {
	w := t.AsMz(mz)
	return mz - w, mz + w
}

func (t Tolerance) String() string {
	return strconv.FormatFloat(t.Value, 'g', -1, 64) + t.Unit.String()
}

// ParseTolerance parses strings such as "10ppm", "0.02 Da" or "0.01th".
func ParseTolerance(s string) (Tolerance, error) {
	str := strings.ToLower(strings.TrimSpace(s))

	var unit ToleranceUnit
	switch {
	case strings.HasSuffix(str, "ppm"):
		unit, str = Ppm, strings.TrimSuffix(str, "ppm")
	case strings.HasSuffix(str, "da"):
		unit, str = Da, strings.TrimSuffix(str, "da")
	case strings.HasSuffix(str, "th"):
		unit, str = Th, strings.TrimSuffix(str, "th")
	case strings.HasSuffix(str, "mz"):
		unit, str = Th, strings.TrimSuffix(str, "mz")
	default:
		return Tolerance{}, fmt.Errorf("tolerance %q: missing unit (ppm, Da or Th)", s)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return Tolerance{}, fmt.Errorf("tolerance %q: %w", s, err)
	}
	if v < 0 {
		return Tolerance{}, fmt.Errorf("tolerance %q: value must be non-negative", s)
	}

	return Tolerance{Value: v, Unit: unit}, nil
}
