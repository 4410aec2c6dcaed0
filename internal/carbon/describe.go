package carbon

import (
	"fmt"
	"strings"
)

// Describe returns a human-readable, multi-line summary of an estimate.
// Values are rounded here for display only.
func Describe(r MonthlyCarbonResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Month: %s\n", r.Month)
	fmt.Fprintf(&b, "Area: %s ha\n", formatFloat(r.AreaHa))
	fmt.Fprintf(&b, "AGB: %.1f kg/ha\n", r.AGBKgPerHa)
	fmt.Fprintf(&b, "Current Carbon Stock: %.3f t C/ha\n", r.CarbonCurrentTCPerHa)
	fmt.Fprintf(&b, "Incremental Carbon (vs prev): %.3f t C/ha\n", r.IncrementalTCPerHa)
	fmt.Fprintf(&b, "Incremental CO2e: %.3f t CO2e\n", r.IncrementalCO2eT)
	fmt.Fprintf(&b, "Buffer Applied: %.3f t CO2e\n", r.BufferAppliedT)
	fmt.Fprintf(&b, "Uncertainty Discount: %.3f t CO2e\n", r.UncertaintyDiscountT)
	fmt.Fprintf(&b, "Credits (net monthly): %.3f t CO2e\n", r.CreditsT)

	a := r.Assumptions
	b.WriteString("Assumptions: k=" + formatFloat(a.K) +
		", CF=" + formatFloat(a.CF) +
		", rootRatio=" + formatFloat(a.RootRatio) +
		", buffer=" + formatPercent(a.BufferRate) +
		", uncertainty=" + formatPercent(a.Uncertainty) +
		", baseline=" + fmt.Sprintf("%.3f", a.PrevMonthStockTCPerHa) + " t C/ha\n")

	return b.String()
}
