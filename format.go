package main

import (
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// NumberFormat selects how tick labels and summaries render numbers.
type NumberFormat int

const (
	FormatRaw      NumberFormat = iota // shortest representation, %g
	FormatNumber                       // 1,234.56
	FormatInteger                      // 1,235
	FormatPercent                      // 12.3%
	FormatCurrency                     // $1,234.56
)

// DateFormat selects a layout for time axes.
type DateFormat string

const (
	FormatDate      DateFormat = "2006-01-02"
	FormatDateShort DateFormat = "Jan 02"
	FormatDateLong  DateFormat = "January 02, 2006"
)

func formatNumber(v float64, f NumberFormat) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	switch f {
	case FormatNumber:
		return humanize.FormatFloat("#,###.##", v)
	case FormatInteger:
		return humanize.FormatFloat("#,###.", v)
	case FormatPercent:
		return humanize.FormatFloat("#,###.#", v*100) + "%"
	case FormatCurrency:
		if v < 0 {
			return "-$" + humanize.FormatFloat("#,###.##", -v)
		}
		return "$" + humanize.FormatFloat("#,###.##", v)
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func formatTime(t time.Time, f DateFormat) string {
	return t.Format(string(f))
}
