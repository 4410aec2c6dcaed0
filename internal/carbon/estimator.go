package carbon

import "math"

// CreditEstimator estimates provisional monthly carbon credits.
type CreditEstimator interface {
	// EstimateMonthlyCarbon returns the estimate for one month, or an
	// *InvalidInputError when the class percentages do not add up to 100.
	EstimateMonthlyCarbon(input MonthlyCarbonInput) (MonthlyCarbonResult, error)
}

// Estimator implements CreditEstimator with the four-class NDVI midpoint model.
// It holds no state and is safe for concurrent use.
type Estimator struct{}

// NewEstimator creates a new credit estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// EstimateMonthlyCarbon calls the package-level EstimateMonthlyCarbon.
func (e *Estimator) EstimateMonthlyCarbon(input MonthlyCarbonInput) (MonthlyCarbonResult, error) {
	return EstimateMonthlyCarbon(input)
}

// EstimateMonthlyCarbon converts a vegetation class distribution into a net
// monthly credit figure.
//
// The calculation:
//  1. AGB (kg/ha) = Σ (pct/100) × (k × NDVI midpoint)
//  2. Above-ground carbon (t C/ha) = AGB × CF / 1000
//  3. Total stock = above-ground carbon × (1 + rootRatio)
//  4. Incremental = max(0, total stock - baseline)
//  5. Gross CO2e (t) = incremental × 44/12 × area
//  6. Buffer = gross × bufferRate
//  7. Uncertainty discount = (gross - buffer) × uncertainty
//  8. Credits = gross - buffer - uncertainty discount
//
// Only the percentage sum is validated. Negative area or baseline values are
// carried through the arithmetic unchanged.
func EstimateMonthlyCarbon(input MonthlyCarbonInput) (MonthlyCarbonResult, error) {
	if err := ValidatePercentages(input.Percentages); err != nil {
		return MonthlyCarbonResult{}, err
	}

	c := input.Coefficients()

	agb := BiomassKgPerHa(input.Percentages, c.K)
	stock := agb * c.CF / KgPerTonne * (1 + c.RootRatio)

	// Stock losses earn nothing
	incremental := math.Max(0, stock-input.PrevMonthStockTCPerHa)

	grossCO2e := incremental * CO2PerCarbon * input.AreaHa

	buffer := grossCO2e * c.BufferRate
	afterBuffer := grossCO2e - buffer

	discount := afterBuffer * c.Uncertainty
	credits := afterBuffer - discount

	return MonthlyCarbonResult{
		Month:                input.Month,
		AreaHa:               input.AreaHa,
		AGBKgPerHa:           agb,
		CarbonCurrentTCPerHa: stock,
		IncrementalTCPerHa:   incremental,
		IncrementalCO2eT:     grossCO2e,
		BufferAppliedT:       buffer,
		UncertaintyDiscountT: discount,
		CreditsT:             credits,
		Assumptions: Assumptions{
			K:                     c.K,
			CF:                    c.CF,
			RootRatio:             c.RootRatio,
			BufferRate:            c.BufferRate,
			Uncertainty:           c.Uncertainty,
			NDVIMidpoints:         NDVIMidpoints(),
			PrevMonthStockTCPerHa: input.PrevMonthStockTCPerHa,
		},
	}, nil
}

// ValidatePercentages returns an *InvalidInputError unless the four class
// percentages add up to 100 within PercentSumTolerance.
func ValidatePercentages(p VegetationPercentages) error {
	sum := p.Sum()
	if math.IsNaN(sum) || math.Abs(sum-PercentTotal) > PercentSumTolerance {
		return &InvalidInputError{Sum: sum}
	}
	return nil
}

// BiomassKgPerHa returns the weighted above-ground biomass in kg/ha for the
// class distribution p and biomass coefficient k. p is not validated.
func BiomassKgPerHa(p VegetationPercentages, k float64) float64 {
	return (p.Bare/PercentTotal)*(k*MidpointBare) +
		(p.Sparse/PercentTotal)*(k*MidpointSparse) +
		(p.Moderate/PercentTotal)*(k*MidpointModerate) +
		(p.Dense/PercentTotal)*(k*MidpointDense)
}

// CarbonStockTCPerHa returns the total carbon stock (above and below ground)
// in t C/ha for the class distribution p. It applies the same biomass model
// as EstimateMonthlyCarbon and is used to derive a baseline from an earlier
// snapshot. p is not validated.
func CarbonStockTCPerHa(p VegetationPercentages, k, cf, rootRatio float64) float64 {
	return BiomassKgPerHa(p, k) * cf / KgPerTonne * (1 + rootRatio)
}
