package main

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultWidth         = 800
	defaultHeight        = 500
	defaultHistogramBins = 10
)

// Margin is the space reserved around the plot area, in pixels.
type Margin struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Dimensions describes the outer chart size and the plot area inside the margins.
type Dimensions struct {
	Width       int
	Height      int
	Margin      Margin
	InnerWidth  int
	InnerHeight int
}

// Palette holds the colors charts draw with, as CSS hex strings.
type Palette struct {
	Categorical []string
	Positive    string
	Negative    string
	Neutral     string
	Highlight   string

	// Endpoints of the sequential ramps.
	SequentialFrom, SequentialTo               string
	SequentialReverseFrom, SequentialReverseTo string
}

// ChartConfig is passed by value to every renderer. Use the With* methods
// to derive variants instead of mutating a shared instance.
type ChartConfig struct {
	Width         int
	Height        int
	Margin        Margin
	Palette       Palette
	Grid          GridOptions
	HistogramBins int
}

func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  defaultWidth,
		Height: defaultHeight,
		Margin: Margin{Top: 20, Right: 20, Bottom: 40, Left: 40},
		Palette: Palette{
			Categorical: []string{
				"#4a90e2", "#50c878", "#f39c12", "#e74c3c", "#9b59b6",
				"#1abc9c", "#f1c40f", "#e67e22", "#3498db", "#95a5a6",
			},
			Positive:  "#4caf50",
			Negative:  "#f44336",
			Neutral:   "#9e9e9e",
			Highlight: "#ff9800",

			SequentialFrom:        "#f7fbff",
			SequentialTo:          "#08306b",
			SequentialReverseFrom: "#ffffcc",
			SequentialReverseTo:   "#800026",
		},
		Grid:          DefaultGridOptions(),
		HistogramBins: defaultHistogramBins,
	}
}

// WithDimensions returns a copy of c with the given outer size. Non-positive
// values keep the current size.
func (c ChartConfig) WithDimensions(width, height int) ChartConfig {
	if width > 0 {
		c.Width = width
	}
	if height > 0 {
		c.Height = height
	}
	c.Palette.Categorical = append([]string(nil), c.Palette.Categorical...)
	return c
}

// Dimensions resolves a chart size; zero sizes and a nil margin fall back to c.
func (c ChartConfig) Dimensions(width, height int, margin *Margin) Dimensions {
	if width <= 0 {
		width = c.Width
	}
	if height <= 0 {
		height = c.Height
	}
	m := c.Margin
	if margin != nil {
		m = *margin
	}
	return Dimensions{
		Width:       width,
		Height:      height,
		Margin:      m,
		InnerWidth:  width - m.Left - m.Right,
		InnerHeight: height - m.Top - m.Bottom,
	}
}

// Color returns the categorical color for a series index, cycling the palette.
func (c ChartConfig) Color(index int) string {
	n := len(c.Palette.Categorical)
	if n == 0 {
		return c.Palette.Neutral
	}
	i := index % n
	if i < 0 {
		i += n
	}
	return c.Palette.Categorical[i]
}

// SequentialColor maps t in [0,1] onto the sequential ramp.
func (c ChartConfig) SequentialColor(t float64, reverse bool) drawing.Color {
	from, to := c.Palette.SequentialFrom, c.Palette.SequentialTo
	if reverse {
		from, to = c.Palette.SequentialReverseFrom, c.Palette.SequentialReverseTo
	}
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return blend(drawing.ColorFromHex(from), drawing.ColorFromHex(to), t)
}

func blend(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
