package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNiceTicks(t *testing.T) {
	rng, ticks := niceTicks(3, 97, 5, FormatRaw)

	assert.Equal(t, 0.0, rng.Min)
	assert.Equal(t, 100.0, rng.Max)
	require.Len(t, ticks, 6)
	assert.Equal(t, 0.0, ticks[0].Value)
	assert.Equal(t, "20", ticks[1].Label)
	assert.Equal(t, 100.0, ticks[5].Value)
}

func TestNiceTicksFractionalSteps(t *testing.T) {
	rng, ticks := niceTicks(0.1, 0.95, 10, FormatRaw)

	assert.InDelta(t, 0.1, rng.Min, 1e-12)
	assert.InDelta(t, 1.0, rng.Max, 1e-12)
	assert.Equal(t, "0.3", ticks[2].Label)
}

func TestNiceTicksDegenerateRange(t *testing.T) {
	rng, ticks := niceTicks(5, 5, 4, FormatRaw)
	assert.Less(t, rng.Min, 5.0)
	assert.Greater(t, rng.Max, 5.0)
	assert.NotEmpty(t, ticks)

	rng, _ = niceTicks(0, 0, 4, FormatRaw)
	assert.Less(t, rng.Min, 0.0)
	assert.Greater(t, rng.Max, 0.0)
}

func TestNiceTicksSwapsReversedBounds(t *testing.T) {
	rng, _ := niceTicks(10, 0, 0, FormatRaw)
	assert.Equal(t, 0.0, rng.Min)
	assert.Equal(t, 10.0, rng.Max)
}

func TestNiceTicksUsesFormat(t *testing.T) {
	_, ticks := niceTicks(0, 5000, 5, FormatNumber)
	assert.Equal(t, "1,000.00", ticks[1].Label)
}

func TestNiceStep(t *testing.T) {
	assert.Equal(t, 1.0, niceStep(0.9))
	assert.Equal(t, 2.0, niceStep(1.5))
	assert.Equal(t, 5.0, niceStep(3))
	assert.Equal(t, 10.0, niceStep(7))
	assert.Equal(t, 20.0, niceStep(18.8))
}

func TestGridStyle(t *testing.T) {
	g := DefaultGridOptions()

	hidden := g.style(false)
	assert.True(t, hidden.Hidden)

	shown := g.style(true)
	assert.False(t, shown.Hidden)
	assert.Equal(t, 1.0, shown.StrokeWidth)
	assert.Equal(t, []float64{3, 3}, shown.StrokeDashArray)
	assert.Equal(t, uint8(0xe0), shown.StrokeColor.R)
}

func TestAxisOptionsRotation(t *testing.T) {
	o := AxisOptions{Label: "value", Rotate: -45}

	x := o.xAxis(0, 10, DefaultGridOptions())
	assert.Equal(t, "value", x.Name)
	assert.Equal(t, -45.0, x.TickStyle.TextRotationDegrees)

	y := AxisOptions{}.yAxis(0, 10, GridOptions{})
	assert.True(t, y.GridMajorStyle.Hidden)
	assert.Zero(t, y.TickStyle.TextRotationDegrees)
}
