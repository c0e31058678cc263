package filter

import (
	"math"
	"slices"
	"sort"

	"github.com/ChrisMcGann/isoscan/pkg/core"
)

// sortedMultiset is an ordered multiset of intensities with rank lookup.
type sortedMultiset struct {
	values []float64
}

func (m *sortedMultiset) insert(v float64) {
	i := sort.SearchFloat64s(m.values, v)
	m.values = slices.Insert(m.values, i, v)
}

// remove deletes one occurrence of v, if present. NaN never compares equal,
// so it is looked up by identity at the end where insert put it.
func (m *sortedMultiset) remove(v float64) {
	if math.IsNaN(v) {
		if i := slices.IndexFunc(m.values, math.IsNaN); i >= 0 {
			m.values = slices.Delete(m.values, i, i+1)
		}
		return
	}
	i := sort.SearchFloat64s(m.values, v)
	if i < len(m.values) && m.values[i] == v {
		m.values = slices.Delete(m.values, i, i+1)
	}
}

func (m *sortedMultiset) len() int { return len(m.values) }

// median averages the two middle values for even sizes.
func (m *sortedMultiset) median() float64 {
	n := len(m.values)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return m.values[n/2]
	}
	return (m.values[n/2-1] + m.values[n/2]) / 2
}

// slidingWindow tracks the intensities of peaks inside a ppm window that
// moves forward through an m/z sorted peak list. Both cursors only advance.
type slidingWindow struct {
	peaks      core.PeakList
	tol        core.Tolerance
	start, end int // window is peaks[start:end]
	set        sortedMultiset
}

func newSlidingWindow(peaks core.PeakList, windowPpm float64) *slidingWindow {
	return &slidingWindow{peaks: peaks, tol: core.NewPpmTolerance(windowPpm)}
}

// centerOn moves the window to [mz - w, mz + w]. Successive calls must use
// non-decreasing mz.
func (w *slidingWindow) centerOn(mz float64) {
	minMz, maxMz := w.tol.Window(mz)
	for w.end < len(w.peaks) && w.peaks[w.end].MZ <= maxMz {
		w.set.insert(w.peaks[w.end].Intensity)
		w.end++
	}
	for w.start < w.end && w.peaks[w.start].MZ < minMz {
		w.set.remove(w.peaks[w.start].Intensity)
		w.start++
	}
}

func (w *slidingWindow) count() int { return w.set.len() }

// sorted returns the window intensities in ascending order. The slice is
// owned by the window and only valid until the next centerOn.
func (w *slidingWindow) sorted() []float64 { return w.set.values }
