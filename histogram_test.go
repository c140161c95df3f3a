package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totalCount(bins []Bin) int {
	n := 0
	for _, b := range bins {
		n += b.Count
	}
	return n
}

func TestBuildHistogram(t *testing.T) {
	bins, err := buildHistogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)
	require.NoError(t, err)
	require.Len(t, bins, 5)

	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 10.0, bins[4].Upper)
	assert.Equal(t, []int{2, 2, 2, 2, 3}, []int{bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count, bins[4].Count})
	assert.Equal(t, 11, totalCount(bins))
}

func TestBuildHistogramUnsortedInput(t *testing.T) {
	samples := []float64{9, 1, 5, 5, 3, 7}
	orig := append([]float64(nil), samples...)

	bins, err := buildHistogram(samples, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, totalCount(bins))
	assert.Equal(t, orig, samples)
}

func TestBuildHistogramConstantInput(t *testing.T) {
	bins, err := buildHistogram([]float64{4, 4, 4}, 10)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, Bin{Lower: 4, Upper: 4, Count: 3}, bins[0])
}

func TestBuildHistogramClampsBinCount(t *testing.T) {
	bins, err := buildHistogram([]float64{1, 2}, 0)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, 2, bins[0].Count)
}

func TestBuildHistogramDropsNonFinite(t *testing.T) {
	bins, err := buildHistogram([]float64{1, math.NaN(), 2, math.Inf(1), 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, totalCount(bins))

	_, err = buildHistogram([]float64{math.NaN()}, 2)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestBuildHistogramEmpty(t *testing.T) {
	_, err := buildHistogram(nil, 10)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestBuildHistogramRangeWiderThanMaxFloat(t *testing.T) {
	bins, err := buildHistogram([]float64{-1e308, 0, 1e308}, 4)
	require.NoError(t, err)
	require.Len(t, bins, 4)

	assert.Equal(t, -1e308, bins[0].Lower)
	assert.Equal(t, 1e308, bins[3].Upper)
	assert.Equal(t, []int{1, 0, 1, 1}, []int{bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count})
	for i := 1; i < len(bins); i++ {
		assert.LessOrEqual(t, bins[i-1].Lower, bins[i].Lower)
	}
}

func TestSpanWide(t *testing.T) {
	d := make([]float64, 3)
	spanWide(d, -math.MaxFloat64, math.MaxFloat64)
	assert.Equal(t, -math.MaxFloat64, d[0])
	assert.Equal(t, 0.0, d[1])
	assert.Equal(t, math.MaxFloat64, d[2])
}
