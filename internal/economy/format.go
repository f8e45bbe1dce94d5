package economy

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatCash renders an amount as "$1,234,567" (cents dropped).
func FormatCash(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + humanize.Comma(int64(math.Round(v)))
}

// FormatAmount renders a number with thousands separators and up to two decimals.
func FormatAmount(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}
