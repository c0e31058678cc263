package core

import (
	"math"
	"testing"
)

func TestToleranceAsMz(t *testing.T) {
	tests := []struct {
		name string
		tol  Tolerance
		mz   float64
		want float64
	}{
		{"ppm", NewPpmTolerance(10), 1000, 0.01},
		{"da", NewDaTolerance(0.02), 1000, 0.02},
		{"th", Tolerance{Value: 0.05, Unit: Th}, 500, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tol.AsMz(tt.mz); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("AsMz(%v) = %v, want %v", tt.mz, got, tt.want)
			}
		})
	}
}

func TestToleranceAsMass(t *testing.T) {
	if got := NewPpmTolerance(10).AsMass(2000, 2); math.Abs(got-0.02) > 1e-12 {
		t.Errorf("ppm AsMass = %v", got)
	}
	if got := (Tolerance{Value: 0.01, Unit: Th}).AsMass(2000, 3); math.Abs(got-0.03) > 1e-12 {
		t.Errorf("Th AsMass = %v", got)
	}
	if got := NewDaTolerance(0.5).AsMass(2000, 3); got != 0.5 {
		t.Errorf("Da AsMass = %v", got)
	}
}

func TestToleranceWindow(t *testing.T) {
	minMz, maxMz := NewPpmTolerance(10).Window(1000)
	if math.Abs(minMz-999.99) > 1e-9 || math.Abs(maxMz-1000.01) > 1e-9 {
		t.Errorf("Window(1000) = [%v, %v]", minMz, maxMz)
	}
}

func TestParseTolerance(t *testing.T) {
	tests := []struct {
		in      string
		want    Tolerance
		wantErr bool
	}{
		{in: "10ppm", want: NewPpmTolerance(10)},
		{in: " 0.02 Da", want: NewDaTolerance(0.02)},
		{in: "0.01th", want: Tolerance{Value: 0.01, Unit: Th}},
		{in: "0.01mz", want: Tolerance{Value: 0.01, Unit: Th}},
		{in: "10", wantErr: true},
		{in: "abcppm", wantErr: true},
		{in: "-5ppm", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTolerance(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTolerance(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTolerance(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToleranceString(t *testing.T) {
	if s := NewPpmTolerance(10).String(); s != "10ppm" {
		t.Errorf("String() = %q", s)
	}
}
