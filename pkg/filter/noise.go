package filter

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/ChrisMcGann/isoscan/pkg/core"
)

const (
	// DefaultSignalToNoiseRatio converts a median noise estimate to a sigma scale.
	DefaultSignalToNoiseRatio = 1.4826
	// DefaultWindowPpm is the half-width of local noise windows.
	DefaultWindowPpm = 10000
	// DefaultSlopeThreshold is the default of the peak-list slope filter.
	DefaultSlopeThreshold = 10000
	// DefaultFilteredSlopeThreshold is the default of FilteredBySlope.
	DefaultFilteredSlopeThreshold = 0.33

	histogramBins      = 10
	histogramNoiseFrac = 0.5
)

// sortByMZ sorts peaks in place by ascending m/z and returns them.
func sortByMZ(peaks []core.Peak) core.PeakList {
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].MZ < peaks[j].MZ
	})
	return peaks
}

// GlobalRatio estimates the noise level as the median intensity and keeps the
// peaks whose intensity is at least noise*ratio. Lists with fewer than two
// peaks are returned as a copy.
func GlobalRatio(peaks core.PeakList, ratio float64) core.PeakList {
	byIntensity := make([]core.Peak, len(peaks))
	copy(byIntensity, peaks)
	if len(byIntensity) < 2 {
		return byIntensity
	}

	sort.SliceStable(byIntensity, func(i, j int) bool {
		return byIntensity[i].Intensity > byIntensity[j].Intensity
	})
	threshold := byIntensity[len(byIntensity)/2].Intensity * ratio

	kept := 0
	for kept < len(byIntensity) && !(byIntensity[kept].Intensity < threshold) {
		kept++
	}
	return sortByMZ(byIntensity[:kept])
}

// LocalMedian keeps a peak when its intensity exceeds ratio times the median
// intensity of the peaks within windowPpm of it. Peaks alone in their window
// are always kept.
func LocalMedian(peaks core.PeakList, ratio, windowPpm float64) core.PeakList {
	kept := make([]core.Peak, 0, len(peaks))
	w := newSlidingWindow(peaks, windowPpm)

	for _, peak := range peaks {
		w.centerOn(peak.MZ)
		if w.count() < 2 {
			kept = append(kept, peak)
			continue
		}
		if peak.Intensity > w.set.median()*ratio {
			kept = append(kept, peak)
		}
	}
	return sortByMZ(kept)
}

// bucket is one histogram bin; lower is exclusive for membership tests.
type bucket struct {
	lower, upper float64
	count        float64
}

// noiseBucket bins the sorted intensities into equal-width bins and returns
// the most populated bin among the lower half. Ties go to the lower bin.
func noiseBucket(sorted []float64) (bucket, bool) {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if !(hi > lo) {
		return bucket{}, false
	}

	dividers := floats.Span(make([]float64, histogramBins+1), lo, hi)
	// stat.Histogram bins are half-open, so push the last divider past hi.
	dividers[histogramBins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	best := 0
	for i := 1; i < int(math.Ceil(histogramBins*histogramNoiseFrac)); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}

	b := bucket{lower: dividers[best], upper: dividers[best+1], count: counts[best]}
	if best == 0 {
		b.lower = math.Nextafter(lo, math.Inf(-1))
	}
	return b, true
}

// IntensityHistogram drops peaks whose intensity lies strictly inside the
// most populated low-intensity histogram bin of their local window. The
// window is always DefaultWindowPpm wide.
func IntensityHistogram(peaks core.PeakList) core.PeakList {
	kept := make([]core.Peak, 0, len(peaks))
	w := newSlidingWindow(peaks, DefaultWindowPpm)

	for _, peak := range peaks {
		w.centerOn(peak.MZ)
		b, ok := noiseBucket(w.sorted())
		if ok && b.lower < peak.Intensity && peak.Intensity < b.upper {
			continue
		}
		kept = append(kept, peak)
	}
	return sortByMZ(kept)
}

// Slope fits a natural cubic spline through the (m/z, intensity) series and
// keeps the peaks where the absolute first derivative exceeds threshold.
// Lists with fewer than two peaks are returned as a copy.
func Slope(peaks core.PeakList, threshold float64) core.PeakList {
	if len(peaks) < 2 {
		out := make([]core.Peak, len(peaks))
		copy(out, peaks)
		return out
	}

	slopes := slopesAt(peaks)
	kept := make([]core.Peak, 0, len(peaks))
	for i, peak := range peaks {
		if math.Abs(slopes[i]) > threshold {
			kept = append(kept, peak)
		}
	}
	return sortByMZ(kept)
}

// slopesAt returns the spline derivative at every peak m/z. Peaks sharing an
// m/z contribute a single knot holding their highest intensity.
func slopesAt(peaks core.PeakList) []float64 {
	xs := make([]float64, 0, len(peaks))
	ys := make([]float64, 0, len(peaks))
	for _, p := range peaks {
		if n := len(xs); n > 0 && xs[n-1] == p.MZ {
			ys[n-1] = math.Max(ys[n-1], p.Intensity)
			continue
		}
		xs = append(xs, p.MZ)
		ys = append(ys, p.Intensity)
	}

	slopes := make([]float64, len(peaks))
	switch {
	case len(xs) < 2:
		return slopes
	case len(xs) == 2:
		s := (ys[1] - ys[0]) / (xs[1] - xs[0])
		for i := range slopes {
			slopes[i] = s
		}
		return slopes
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return slopes
	}
	for i, p := range peaks {
		slopes[i] = spline.PredictDerivative(p.MZ)
	}
	return slopes
}
