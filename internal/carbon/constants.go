// Package carbon estimates provisional monthly carbon credits for farm plots
// from the share of land in each NDVI vegetation class.
package carbon

const (
	// DefaultK is the linear biomass coefficient in kg/ha per NDVI unit.
	// Placeholder value; needs calibration against local field plots.
	DefaultK = 7500.0

	// DefaultCF is the carbon fraction of dry biomass.
	// Source: IPCC 2006 Guidelines, Vol. 4, default for herbaceous biomass.
	DefaultCF = 0.45

	// DefaultRootRatio is the belowground:aboveground carbon ratio (20%).
	DefaultRootRatio = 0.20

	// DefaultBufferRate is the fraction of gross credits withheld against
	// reversal (permanence) risk.
	DefaultBufferRate = 0.15

	// DefaultUncertainty is the conservative discount applied after the buffer
	// for measurement and estimation error.
	DefaultUncertainty = 0.10

	// CO2PerCarbon is the molar-mass ratio of CO2 to elemental carbon.
	CO2PerCarbon = 44.0 / 12.0

	// KgPerTonne converts kilograms to metric tonnes.
	KgPerTonne = 1000.0

	// PercentTotal is the value the four class percentages must add up to.
	PercentTotal = 100.0

	// PercentSumTolerance is the absolute tolerance on the percentage sum.
	PercentSumTolerance = 1e-6
)

// Representative NDVI midpoint for each vegetation class.
//
//	Bare/Non-Veg  -1.0 .. 0.2
//	Sparse Veg     0.2 .. 0.4
//	Moderate Veg   0.4 .. 0.6
//	Dense Veg      0.6 .. 1.0  (0.80 reflects high vigour)
const (
	MidpointBare     = 0.10
	MidpointSparse   = 0.30
	MidpointModerate = 0.50
	MidpointDense    = 0.80
)

// Midpoints is the NDVI midpoint table used by the biomass model.
type Midpoints struct {
	Bare     float64 `json:"bare" yaml:"bare"`
	Sparse   float64 `json:"sparse" yaml:"sparse"`
	Moderate float64 `json:"moderate" yaml:"moderate"`
	Dense    float64 `json:"dense" yaml:"dense"`
}

// NDVIMidpoints returns a copy of the fixed midpoint table.
func NDVIMidpoints() Midpoints {
	return Midpoints{
		Bare:     MidpointBare,
		Sparse:   MidpointSparse,
		Moderate: MidpointModerate,
		Dense:    MidpointDense,
	}
}
