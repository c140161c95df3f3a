package main

import (
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const defaultTickCount = 6

// AxisOptions configure one axis. The zero value is an unlabelled axis with
// automatic ticks and raw number labels. go-chart draws the X axis at the
// bottom and the Y axis on the right, so there is no position option.
type AxisOptions struct {
	Label  string
	Format NumberFormat
	Ticks  int     // 0 picks defaultTickCount
	Rotate float64 // tick label rotation in degrees, e.g. -45
}

// GridOptions configure the reference lines drawn behind the data.
type GridOptions struct {
	XLines      bool
	YLines      bool
	Stroke      string
	StrokeWidth float64
	DashArray   []float64
}

func DefaultGridOptions() GridOptions {
	return GridOptions{
		XLines:      true,
		YLines:      true,
		Stroke:      "#e0e0e0",
		StrokeWidth: 1,
		DashArray:   []float64{3, 3},
	}
}

func (g GridOptions) style(show bool) chart.Style {
	if !show {
		return chart.Hidden()
	}
	return chart.Style{
		StrokeColor:     drawing.ColorFromHex(g.Stroke).WithAlpha(128),
		StrokeWidth:     g.StrokeWidth,
		StrokeDashArray: g.DashArray,
	}
}

// niceTicks spreads count+1 ticks over [lo, hi] after widening it outward to
// round steps. A zero-width range is widened so the axis stays drawable.
func niceTicks(lo, hi float64, count int, f NumberFormat) (chart.ContinuousRange, []chart.Tick) {
	if count < 1 {
		count = defaultTickCount
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		pad := math.Abs(lo) * 0.1
		if pad == 0 {
			pad = 1
		}
		lo, hi = lo-pad, hi+pad
	}

	if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
		return chart.ContinuousRange{}, nil
	}

	step := niceStep((hi - lo) / float64(count))
	// Round to the step's decimals so labels read 0.3, not 0.30000000000000004.
	scale := math.Pow(10, math.Max(0, -math.Floor(math.Log10(step))))
	snap := func(v float64) float64 { return math.Round(v*scale) / scale }
	lo = snap(math.Floor(lo/step) * step)
	hi = snap(math.Ceil(hi/step) * step)

	n := int(math.Round((hi - lo) / step))
	ticks := make([]chart.Tick, 0, n+1)
	for k := 0; k <= n; k++ {
		v := snap(lo + float64(k)*step)
		ticks = append(ticks, chart.Tick{Value: v, Label: formatNumber(v, f)})
	}
	return chart.ContinuousRange{Min: lo, Max: hi}, ticks
}

// niceStep rounds raw up to 1, 2, 5 or 10 times a power of ten.
func niceStep(raw float64) float64 {
	exp := math.Floor(math.Log10(raw))
	base := math.Pow(10, exp)
	switch frac := raw / base; {
	case frac <= 1:
		return base
	case frac <= 2:
		return 2 * base
	case frac <= 5:
		return 5 * base
	default:
		return 10 * base
	}
}

func (o AxisOptions) xAxis(lo, hi float64, grid GridOptions) chart.XAxis {
	rng, ticks := niceTicks(lo, hi, o.Ticks, o.Format)
	ax := chart.XAxis{
		Name:           o.Label,
		Range:          &rng,
		Ticks:          ticks,
		GridMajorStyle: grid.style(grid.XLines),
		GridMinorStyle: chart.Hidden(),
	}
	if o.Rotate != 0 {
		ax.TickStyle = chart.Style{TextRotationDegrees: o.Rotate}
	}
	return ax
}

func (o AxisOptions) yAxis(lo, hi float64, grid GridOptions) chart.YAxis {
	rng, ticks := niceTicks(lo, hi, o.Ticks, o.Format)
	ax := chart.YAxis{
		Name:           o.Label,
		Range:          &rng,
		Ticks:          ticks,
		GridMajorStyle: grid.style(grid.YLines),
		GridMinorStyle: chart.Hidden(),
	}
	if o.Rotate != 0 {
		ax.TickStyle = chart.Style{TextRotationDegrees: o.Rotate}
	}
	return ax
}
