package main

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var errNonFinite = errors.New("statistics contain non-finite values")

// Box plot geometry in x units; the x axis spans [0, 2].
const (
	boxCenter   = 1.0
	boxHalf     = 0.25
	capHalf     = 0.1
	outlierDotW = 4.0
)

func padding(m Margin) chart.Box {
	return chart.Box{Top: m.Top, Right: m.Right, Bottom: m.Bottom, Left: m.Left}
}

// whiskers returns the most extreme samples inside the outlier fences. When
// samples is empty the extrema are clamped to the fences instead.
func whiskers(samples []float64, st Stats) (low, high float64) {
	lower, upper := st.Fences()
	if len(samples) == 0 {
		return math.Max(st.Min, lower), math.Min(st.Max, upper)
	}
	low, high = math.Inf(1), math.Inf(-1)
	for _, v := range samples {
		if v < lower || v > upper {
			continue
		}
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	return low, high
}

// renderBoxPlot writes an SVG box plot of st, computed from samples, to w.
func renderBoxPlot(w io.Writer, samples []float64, st Stats, cfg ChartConfig, y AxisOptions, label string) error {
	for _, v := range []float64{st.Min, st.Max, st.Q1, st.Q3, st.Median, st.Mean} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errNonFinite
		}
	}
	low, high := whiskers(samples, st)
	dims := cfg.Dimensions(0, 0, nil)
	stroke := drawing.ColorFromHex(cfg.Color(0))

	outline := chart.ContinuousSeries{
		Name: "IQR / whiskers",
		Style: chart.Style{
			StrokeColor: stroke,
			StrokeWidth: 2,
		},
		XValues: []float64{
			boxCenter - capHalf, boxCenter + capHalf, boxCenter, boxCenter,
			boxCenter + boxHalf, boxCenter + boxHalf, boxCenter, boxCenter,
			boxCenter - capHalf, boxCenter + capHalf, boxCenter, boxCenter,
			boxCenter - boxHalf, boxCenter - boxHalf, boxCenter,
		},
		YValues: []float64{
			low, low, low, st.Q1,
			st.Q1, st.Q3, st.Q3, high,
			high, high, high, st.Q3,
			st.Q3, st.Q1, st.Q1,
		},
	}
	median := chart.ContinuousSeries{
		Name:    fmt.Sprintf("median %s", formatNumber(st.Median, y.Format)),
		Style:   chart.Style{StrokeColor: drawing.ColorFromHex(cfg.Palette.Highlight), StrokeWidth: 3},
		XValues: []float64{boxCenter - boxHalf, boxCenter + boxHalf},
		YValues: []float64{st.Median, st.Median},
	}
	mean := chart.ContinuousSeries{
		Name: fmt.Sprintf("mean %s", formatNumber(st.Mean, y.Format)),
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    outlierDotW,
			DotColor:    drawing.ColorFromHex(cfg.Palette.Positive),
		},
		XValues: []float64{boxCenter},
		YValues: []float64{st.Mean},
	}
	series := []chart.Series{outline, median, mean}

	if len(st.Outliers) > 0 {
		xs := make([]float64, len(st.Outliers))
		for i := range xs {
			xs[i] = boxCenter
		}
		series = append(series, chart.ContinuousSeries{
			Name: fmt.Sprintf("outliers (%d)", len(st.Outliers)),
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    outlierDotW,
				DotColor:    drawing.ColorFromHex(cfg.Palette.Negative),
			},
			XValues: xs,
			YValues: append([]float64(nil), st.Outliers...),
		})
	}

	grid := cfg.Grid
	grid.XLines = false
	ch := chart.Chart{
		Width:      dims.Width,
		Height:     dims.Height,
		Background: chart.Style{Padding: padding(dims.Margin)},
		XAxis: chart.XAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: 2 * boxCenter},
			Ticks:          []chart.Tick{{Value: 0}, {Value: boxCenter, Label: label}, {Value: 2 * boxCenter}},
			GridMajorStyle: chart.Hidden(),
			GridMinorStyle: chart.Hidden(),
		},
		YAxis:  y.yAxis(st.Min, st.Max, grid),
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.SVG, w)
}

// renderHistogram writes an SVG bar chart of bins to w. Bars are shaded on
// the sequential ramp by their height relative to the tallest bar.
func renderHistogram(w io.Writer, bins []Bin, cfg ChartConfig, x, y AxisOptions) error {
	if len(bins) == 0 {
		return ErrNoSamples
	}
	dims := cfg.Dimensions(0, 0, nil)

	maxCount := 0
	for _, b := range bins {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	bars := make([]chart.Value, len(bins))
	for i, b := range bins {
		t := float64(b.Count) / float64(maxCount)
		fill := cfg.SequentialColor(0.2+0.8*t, false)
		bars[i] = chart.Value{
			Label: formatNumber(b.Lower, x.Format),
			Value: float64(b.Count),
			Style: chart.Style{FillColor: fill, StrokeColor: fill},
		}
	}

	slot := dims.InnerWidth / len(bins)
	barWidth := slot * 4 / 5
	if barWidth < 1 {
		barWidth = 1
	}
	xStyle := chart.Style{}
	if x.Rotate != 0 {
		xStyle.TextRotationDegrees = x.Rotate
	}
	yAxis := y.yAxis(0, float64(maxCount), cfg.Grid)
	yAxis.Ticks = integerTicks(yAxis.Ticks)

	bc := chart.BarChart{
		Width:      dims.Width,
		Height:     dims.Height,
		Background: chart.Style{Padding: padding(dims.Margin)},
		BarWidth:   barWidth,
		BarSpacing: slot - barWidth,
		XAxis:      xStyle,
		YAxis:      yAxis,
		Bars:       bars,
	}
	return bc.Render(chart.SVG, w)
}

// integerTicks drops fractional ticks; counts are whole numbers.
func integerTicks(ticks []chart.Tick) []chart.Tick {
	out := ticks[:0:0]
	for _, t := range ticks {
		if t.Value == math.Trunc(t.Value) {
			out = append(out, t)
		}
	}
	if len(out) < 2 {
		return ticks
	}
	return out
}
