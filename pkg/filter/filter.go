// Package filter provides peak filtering and noise removal for spectra.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ChrisMcGann/isoscan/pkg/core"
)

// Method selects a noise removal strategy.
type Method string

const (
	MethodNone      Method = "none"
	MethodGlobal    Method = "global"
	MethodLocal     Method = "local"
	MethodHistogram Method = "histogram"
	MethodSlope     Method = "slope"
)

// ParseMethod validates a noise method name; the empty string means none.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return MethodNone, nil
	case MethodNone, MethodGlobal, MethodLocal, MethodHistogram, MethodSlope:
		return m, nil
	}
	return "", fmt.Errorf("unknown noise filter method '%s', must be none, global, local, histogram or slope", name)
}

// Config holds filtering configuration
type Config struct {
	Method             Method  // Noise removal strategy
	SignalToNoiseRatio float64 // Ratio for global and local filters
	WindowPpm          float64 // Window half-width for the local filter only
	SlopeThreshold     float64 // Threshold for the slope filter
	TopN               int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff    float64 // Keep only peaks above this % of base peak (0 = no cutoff)
}

// DefaultConfig returns a Config with the package defaults and no noise removal.
func DefaultConfig() Config {
	return Config{
		Method:             MethodNone,
		SignalToNoiseRatio: DefaultSignalToNoiseRatio,
		WindowPpm:          DefaultWindowPpm,
		SlopeThreshold:     DefaultFilteredSlopeThreshold,
	}
}

// Apply runs every configured filter and returns a new spectrum. The source
// spectrum is only read.
func (c *Config) Apply(spec *core.Spectrum) (*core.Spectrum, error) {
	peaks := RemoveZeroIntensityPeaks(spec.Peaks)

	if c.IntensityCutoff > 0 {
		peaks = filterByIntensity(peaks, c.IntensityCutoff)
	}
	if c.TopN > 0 {
		peaks = filterTopN(peaks, c.TopN)
	}

	switch c.Method {
	case "", MethodNone:
	case MethodGlobal:
		peaks = GlobalRatio(peaks, c.SignalToNoiseRatio)
	case MethodLocal:
		peaks = LocalMedian(peaks, c.SignalToNoiseRatio, c.WindowPpm)
	case MethodHistogram:
		peaks = IntensityHistogram(peaks)
	case MethodSlope:
		peaks = Slope(peaks, c.SlopeThreshold)
	default:
		return nil, fmt.Errorf("unknown noise filter method '%s'", c.Method)
	}

	return spec.WithPeaks(peaks), nil
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func filterByIntensity(peaks core.PeakList, cutoffPercent float64) core.PeakList {
	maxIntensity := 0.0
	for _, peak := range peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}

	threshold := (cutoffPercent / 100.0) * maxIntensity
	filtered := make(core.PeakList, 0, len(peaks))
	for _, peak := range peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}
	return filtered
}

// filterTopN keeps only the n most intense peaks, in m/z order
func filterTopN(peaks core.PeakList, n int) core.PeakList {
	if len(peaks) <= n {
		return peaks
	}

	byIntensity := make([]core.Peak, len(peaks))
	copy(byIntensity, peaks)
	sort.SliceStable(byIntensity, func(i, j int) bool {
		return byIntensity[i].Intensity > byIntensity[j].Intensity
	})
	return sortByMZ(byIntensity[:n])
}

// RemoveZeroIntensityPeaks returns the peaks with positive intensity.
func RemoveZeroIntensityPeaks(peaks core.PeakList) core.PeakList {
	filtered := make(core.PeakList, 0, len(peaks))
	for _, peak := range peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	return filtered
}

// FilterNoise applies GlobalRatio to spec in place.
func FilterNoise(spec *core.Spectrum, ratio float64) {
	spec.Peaks = GlobalRatio(spec.Peaks, ratio)
}

// FilterNoiseByLocalWindow applies LocalMedian to spec in place.
func FilterNoiseByLocalWindow(spec *core.Spectrum, ratio, windowPpm float64) {
	spec.Peaks = LocalMedian(spec.Peaks, ratio, windowPpm)
}

// FilterNoiseByIntensityHistogram applies IntensityHistogram to spec in place.
func FilterNoiseByIntensityHistogram(spec *core.Spectrum) {
	spec.Peaks = IntensityHistogram(spec.Peaks)
}

// FilterNoiseBySlope applies Slope to spec in place.
func FilterNoiseBySlope(spec *core.Spectrum, threshold float64) {
	spec.Peaks = Slope(spec.Peaks, threshold)
}

// FilteredBySignalToNoise returns a copy of spec filtered with GlobalRatio.
func FilteredBySignalToNoise(spec *core.Spectrum, ratio float64) *core.Spectrum {
	return spec.WithPeaks(GlobalRatio(spec.Peaks, ratio))
}

// FilteredByLocalWindow returns a copy of spec filtered with LocalMedian.
func FilteredByLocalWindow(spec *core.Spectrum, ratio, windowPpm float64) *core.Spectrum {
	return spec.WithPeaks(LocalMedian(spec.Peaks, ratio, windowPpm))
}

// FilteredByIntensityHistogram returns a copy of spec filtered with IntensityHistogram.
func FilteredByIntensityHistogram(spec *core.Spectrum) *core.Spectrum {
	return spec.WithPeaks(IntensityHistogram(spec.Peaks))
}

// FilteredBySlope returns a copy of spec filtered with Slope. Callers wanting
// the conventional default pass DefaultFilteredSlopeThreshold.
func FilteredBySlope(spec *core.Spectrum, threshold float64) *core.Spectrum {
	return spec.WithPeaks(Slope(spec.Peaks, threshold))
}
