package main

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// buildHistogram splits the finite samples into equal-width bins between
// their min and max. NaN and infinite values have no bin and are dropped.
func buildHistogram(samples []float64, bins int) ([]Bin, error) {
	if bins < 1 {
		bins = 1
	}
	x := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return nil, ErrNoSamples
	}
	sort.Float64s(x)
	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(x)}}, nil
	}

	dividers := make([]float64, bins+1)
	if math.IsInf(hi-lo, 0) {
		spanWide(dividers, lo, hi)
	} else {
		floats.Span(dividers, lo, hi)
	}
	// stat.Histogram wants the largest value strictly below the last divider.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, x, nil)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].Upper = hi
	return out, nil
}

// spanWide fills dst with evenly spaced values from lo to hi when hi-lo
// overflows. Each divider is a convex combination of the bounds, kept
// non-decreasing against rounding.
func spanWide(dst []float64, lo, hi float64) {
	n := float64(len(dst) - 1)
	for i := range dst {
		t := float64(i) / n
		dst[i] = lo*(1-t) + hi*t
		if i > 0 && dst[i] < dst[i-1] {
			dst[i] = dst[i-1]
		}
	}
}
