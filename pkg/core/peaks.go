package core

import "sort"

// PeakList is a sequence of peaks sorted by m/z.
type PeakList []Peak

// IsSorted reports whether the list is in ascending m/z order.
func (pl PeakList) IsSorted() bool {
	for i := 1; i < len(pl); i++ {
		if pl[i].MZ < pl[i-1].MZ {
			return false
		}
	}
	return true
}

// lowerBound returns the index of the first peak with m/z >= mz.
func (pl PeakList) lowerBound(mz float64) int {
	return sort.Search(len(pl), func(i int) bool {
		return pl[i].MZ >= mz
	})
}

// FindPeakIndex returns the index of the most intense peak with
// minMz <= m/z <= maxMz, or -1 when the range holds no peak.
// Among equally intense peaks the one with the lowest m/z wins.
func (pl PeakList) FindPeakIndex(minMz, maxMz float64) int {
	best := -1
	for i := pl.lowerBound(minMz); i < len(pl); i++ {
		if pl[i].MZ > maxMz {
			break
		}
		if best < 0 || pl[i].Intensity > pl[best].Intensity {
			best = i
		}
	}
	return best
}

// FindPeak returns the most intense peak within [minMz, maxMz].
func (pl PeakList) FindPeak(minMz, maxMz float64) (Peak, bool) {
	i := pl.FindPeakIndex(minMz, maxMz)
	if i < 0 {
		return Peak{}, false
	}
	return pl[i], true
}

// FindPeakIndexTol is FindPeakIndex over the tolerance window around mz.
func (pl PeakList) FindPeakIndexTol(mz float64, tol Tolerance) int {
	minMz, maxMz := tol.Window(mz)
	return pl.FindPeakIndex(minMz, maxMz)
}

// FindPeakTol is FindPeak over the tolerance window around mz.
func (pl PeakList) FindPeakTol(mz float64, tol Tolerance) (Peak, bool) {
	minMz, maxMz := tol.Window(mz)
	return pl.FindPeak(minMz, maxMz)
}

// PeaksWithin returns all peaks with minMz <= m/z <= maxMz in ascending order.
func (pl PeakList) PeaksWithin(minMz, maxMz float64) []Peak {
	return pl.AppendPeaksWithin(nil, minMz, maxMz)
}

// AppendPeaksWithin appends the peaks within [minMz, maxMz] to dst.
func (pl PeakList) AppendPeaksWithin(dst []Peak, minMz, maxMz float64) []Peak {
	for i := pl.lowerBound(minMz); i < len(pl); i++ {
		if pl[i].MZ > maxMz {
			break
		}
		dst = append(dst, pl[i])
	}
	return dst
}

// FindPeakIndex returns the index of the most intense peak in [minMz, maxMz], or -1.
func (s *Spectrum) FindPeakIndex(minMz, maxMz float64) int {
	return s.Peaks.FindPeakIndex(minMz, maxMz)
}

// FindPeak returns the most intense peak in [minMz, maxMz].
func (s *Spectrum) FindPeak(minMz, maxMz float64) (Peak, bool) {
	return s.Peaks.FindPeak(minMz, maxMz)
}

// FindPeakIndexTol returns the index of the most intense peak within tol of mz, or -1.
func (s *Spectrum) FindPeakIndexTol(mz float64, tol Tolerance) int {
	return s.Peaks.FindPeakIndexTol(mz, tol)
}

// FindPeakTol returns the most intense peak within tol of mz.
func (s *Spectrum) FindPeakTol(mz float64, tol Tolerance) (Peak, bool) {
	return s.Peaks.FindPeakTol(mz, tol)
}

// PeaksWithin returns the peaks in [minMz, maxMz].
func (s *Spectrum) PeaksWithin(minMz, maxMz float64) []Peak {
	return s.Peaks.PeaksWithin(minMz, maxMz)
}
