package carbon

// VegetationPercentages is the share of an area, in percent, falling into each
// NDVI vegetation class. The four values must add up to 100.
type VegetationPercentages struct {
	Bare     float64 `json:"bare"`
	Sparse   float64 `json:"sparse"`
	Moderate float64 `json:"moderate"`
	Dense    float64 `json:"dense"`
}

// Sum returns the total of the four class percentages.
func (p VegetationPercentages) Sum() float64 {
	return p.Bare + p.Sparse + p.Moderate + p.Dense
}

// Scale returns p with every class multiplied by f.
func (p VegetationPercentages) Scale(f float64) VegetationPercentages {
	return VegetationPercentages{
		Bare:     p.Bare * f,
		Sparse:   p.Sparse * f,
		Moderate: p.Moderate * f,
		Dense:    p.Dense * f,
	}
}

// Values returns the percentages in axis order: bare, sparse, moderate, dense.
func (p VegetationPercentages) Values() [4]float64 {
	return [4]float64{p.Bare, p.Sparse, p.Moderate, p.Dense}
}

// MonthlyCarbonInput is a single monthly estimation request.
//
// The coefficient fields are optional; a nil pointer selects the package
// default (DefaultK, DefaultCF, ...).
type MonthlyCarbonInput struct {
	// AreaHa is the analysed area in hectares.
	AreaHa float64 `json:"areaHa"`

	// Month is an opaque label such as "2025-09", echoed in the result.
	Month string `json:"month"`

	// Percentages is the class cover distribution for the month.
	Percentages VegetationPercentages `json:"percentages"`

	// PrevMonthStockTCPerHa is the baseline total carbon stock in t C/ha.
	PrevMonthStockTCPerHa float64 `json:"prevMonthStock_tC_perHa"`

	K           *float64 `json:"k,omitempty"`
	CF          *float64 `json:"CF,omitempty"`
	RootRatio   *float64 `json:"rootRatio,omitempty"`
	BufferRate  *float64 `json:"bufferRate,omitempty"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
}

// Coefficients is a fully resolved set of calibration coefficients.
type Coefficients struct {
	K           float64 `json:"k" yaml:"k"`
	CF          float64 `json:"CF" yaml:"cf"`
	RootRatio   float64 `json:"rootRatio" yaml:"root_ratio"`
	BufferRate  float64 `json:"bufferRate" yaml:"buffer_rate"`
	Uncertainty float64 `json:"uncertainty" yaml:"uncertainty"`
}

// DefaultCoefficients returns the placeholder calibration.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		K:           DefaultK,
		CF:          DefaultCF,
		RootRatio:   DefaultRootRatio,
		BufferRate:  DefaultBufferRate,
		Uncertainty: DefaultUncertainty,
	}
}

// Apply sets every coefficient of in explicitly from c.
func (c Coefficients) Apply(in *MonthlyCarbonInput) {
	in.K = Float(c.K)
	in.CF = Float(c.CF)
	in.RootRatio = Float(c.RootRatio)
	in.BufferRate = Float(c.BufferRate)
	in.Uncertainty = Float(c.Uncertainty)
}

// Fill sets only the coefficients of in that are still nil.
func (c Coefficients) Fill(in *MonthlyCarbonInput) {
	if in.K == nil {
		in.K = Float(c.K)
	}
	if in.CF == nil {
		in.CF = Float(c.CF)
	}
	if in.RootRatio == nil {
		in.RootRatio = Float(c.RootRatio)
	}
	if in.BufferRate == nil {
		in.BufferRate = Float(c.BufferRate)
	}
	if in.Uncertainty == nil {
		in.Uncertainty = Float(c.Uncertainty)
	}
}

// Coefficients resolves the optional coefficients of in against the defaults.
func (in MonthlyCarbonInput) Coefficients() Coefficients {
	return Coefficients{
		K:           valueOr(in.K, DefaultK),
		CF:          valueOr(in.CF, DefaultCF),
		RootRatio:   valueOr(in.RootRatio, DefaultRootRatio),
		BufferRate:  valueOr(in.BufferRate, DefaultBufferRate),
		Uncertainty: valueOr(in.Uncertainty, DefaultUncertainty),
	}
}

// Assumptions records every value the estimate depended on.
type Assumptions struct {
	K                     float64   `json:"k"`
	CF                    float64   `json:"CF"`
	RootRatio             float64   `json:"rootRatio"`
	BufferRate            float64   `json:"bufferRate"`
	Uncertainty           float64   `json:"uncertainty"`
	NDVIMidpoints         Midpoints `json:"NDVI_MIDPOINTS"`
	PrevMonthStockTCPerHa float64   `json:"prevMonthStock_tC_perHa"`
}

// MonthlyCarbonResult holds the estimate and all intermediate quantities.
// Nothing is rounded; callers round for display only.
type MonthlyCarbonResult struct {
	Month  string  `json:"month"`
	AreaHa float64 `json:"areaHa"`

	// AGBKgPerHa is the weighted above-ground biomass in kg/ha.
	AGBKgPerHa float64 `json:"AGB_kg_per_ha"`

	// CarbonCurrentTCPerHa is the total stock (above + below ground) in t C/ha.
	CarbonCurrentTCPerHa float64 `json:"carbon_current_tC_perHa"`

	// IncrementalTCPerHa is the stock gain over the baseline, never negative.
	IncrementalTCPerHa float64 `json:"incremental_tC_perHa"`

	// IncrementalCO2eT is the gain across the full area in t CO2e, before
	// buffer and uncertainty.
	IncrementalCO2eT float64 `json:"incremental_CO2e_t"`

	BufferAppliedT       float64 `json:"buffer_applied_t"`
	UncertaintyDiscountT float64 `json:"uncertainty_discount_t"`

	// CreditsT is the net provisional credit figure in t CO2e.
	CreditsT float64 `json:"credits_after_buffer_uncertainty_t"`

	Assumptions Assumptions `json:"assumptions"`
}

// Float returns a pointer to v, for the optional coefficient fields.
func Float(v float64) *float64 {
	return &v
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
