package modem

import "sort"

// Subcarrier index management for OFDM frames.
// Indices follow FFT bin order: 0 is DC, FFTSize/2 is Nyquist, and the
// upper half holds the negative frequencies.

// SubcarrierRange returns the inclusive index range [lo, hi].
func SubcarrierRange(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	idx := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		idx = append(idx, i)
	}
	return idx
}

// ReferenceSubcarriers returns the 52 active bins of an 802.11a-style
// 64-point frame: 1..26 and 38..63. DC and the band around Nyquist stay empty.
func ReferenceSubcarriers() []int {
	return append(SubcarrierRange(1, 26), SubcarrierRange(38, 63)...)
}

// InactiveSubcarriers returns the bins of an fftSize frame not in active,
// in ascending order.
func InactiveSubcarriers(fftSize int, active []int) []int {
	used := make(map[int]bool, len(active))
	for _, k := range active {
		used[k] = true
	}
	var idle []int
	for k := 0; k < fftSize; k++ {
		if !used[k] {
			idle = append(idle, k)
		}
	}
	return idle
}

// InsertSubcarriers scatters data onto the active bins of a zeroed frame.
// len(data) must equal len(active).
func InsertSubcarriers(data []complex128, fftSize int, active []int) []complex128 {
	spectrum := make([]complex128, fftSize)
	for i, k := range active {
		spectrum[k] = data[i]
	}
	return spectrum
}

func sortedCopy(idx []int) []int {
	out := make([]int, len(idx))
	copy(out, idx)
	sort.Ints(out)
	return out
}
