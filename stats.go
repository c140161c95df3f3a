package main

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// outlierFactor scales the IQR to place the Tukey fences.
const outlierFactor = 1.5

// ErrNoSamples is returned when statistics are requested for an empty sample set.
var ErrNoSamples = errors.New("no samples")

// Stats is the descriptive summary of one sample set. It is computed once and
// not modified afterwards; Outliers is freshly allocated per call.
type Stats struct {
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Mean     float64   `json:"mean"`
	Median   float64   `json:"median"`
	Q1       float64   `json:"q1"`
	Q3       float64   `json:"q3"`
	IQR      float64   `json:"iqr"`
	StdDev   float64   `json:"std"`
	Outliers []float64 `json:"outliers"`
}

// Fences returns the bounds outside of which a value counts as an outlier.
func (s Stats) Fences() (lower, upper float64) {
	return s.Q1 - outlierFactor*s.IQR, s.Q3 + outlierFactor*s.IQR
}

func calculateStatistics(samples []float64) (Stats, error) {
	if len(samples) == 0 {
		return Stats{}, ErrNoSamples
	}
	s := append([]float64(nil), samples...)
	sort.Float64s(s)

	q1 := quantile(s, 0.25)
	q3 := quantile(s, 0.75)
	st := Stats{
		Min:    floats.Min(samples),
		Max:    floats.Max(samples),
		Mean:   stat.Mean(samples, nil),
		Median: quantile(s, 0.5),
		Q1:     q1,
		Q3:     q3,
		IQR:    q3 - q1,
		StdDev: math.NaN(),
	}
	if len(samples) > 1 {
		st.StdDev = stat.StdDev(samples, nil)
	}

	lower, upper := st.Fences()
	st.Outliers = make([]float64, 0)
	for _, v := range samples {
		if v < lower || v > upper {
			st.Outliers = append(st.Outliers, v)
		}
	}
	return st, nil
}

// quantile estimates the p-quantile of sorted by interpolating linearly
// between the order statistics around rank p*(n-1).
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 || n == 1 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	i := p * float64(n-1)
	lo := math.Floor(i)
	hi := math.Ceil(i)
	a, b := sorted[int(lo)], sorted[int(hi)]
	// Rounding in b-a can push the result past b.
	return math.Min(a+(b-a)*(i-lo), b)
}
