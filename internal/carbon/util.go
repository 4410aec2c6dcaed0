package carbon

import (
	"fmt"
	"math"
)

// formatFloat formats a float for display.
// Whole numbers are printed without decimals, anything else with 2.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}

// formatPercent formats a fraction such as 0.15 as "15%".
func formatPercent(f float64) string {
	return formatFloat(math.Round(f*10000)/100) + "%"
}

// Clamp restricts a value to the range [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
