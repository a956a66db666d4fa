package sale

import "math"

// roundCurrency rounds to 2 decimal places, half away from zero. Totals
// are rounded after every individual incremental update rather than once
// at the end, so they match the host's running totals bit for bit.
func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
