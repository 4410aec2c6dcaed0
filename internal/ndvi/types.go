// Package ndvi fetches before/after NDVI class comparisons from the satellite
// classification service and maps them onto carbon.VegetationPercentages.
package ndvi

import (
	"math"

	"github.com/satfarm/farmcarbon/internal/carbon"
)

// Class names used by the classification service.
const (
	ClassBare     = "Bare/Non-Veg"
	ClassSparse   = "Sparse Veg"
	ClassModerate = "Moderate Veg"
	ClassDense    = "Dense Veg"
)

// DriftWarnThreshold is the distance from 100 beyond which a class sum is
// more than classifier rounding and worth a warning.
const DriftWarnThreshold = 0.05

// ClassChange is the area and share of one vegetation class in the earlier
// ("before") and later ("after") image.
type ClassChange struct {
	BeforeHa   float64 `json:"before_ha"`
	AfterHa    float64 `json:"after_ha"`
	ChangeHa   float64 `json:"change_ha"`
	BeforePerc float64 `json:"before_perc"`
	AfterPerc  float64 `json:"after_perc"`
}

// ChangeResult is the classification service response for one farm.
type ChangeResult struct {
	TotalAreaHa float64                `json:"total_area_ha"`
	Classes     map[string]ClassChange `json:"classes"`
	URLs        []string               `json:"urls,omitempty"`
}

// Before returns the class distribution of the earlier image. Missing classes
// count as zero.
func (r *ChangeResult) Before() carbon.VegetationPercentages {
	return r.percentages(func(c ClassChange) float64 { return c.BeforePerc })
}

// After returns the class distribution of the later image. Missing classes
// count as zero.
func (r *ChangeResult) After() carbon.VegetationPercentages {
	return r.percentages(func(c ClassChange) float64 { return c.AfterPerc })
}

func (r *ChangeResult) percentages(pick func(ClassChange) float64) carbon.VegetationPercentages {
	if r == nil {
		return carbon.VegetationPercentages{}
	}
	get := func(name string) float64 {
		c, ok := r.Classes[name]
		if !ok {
			return 0
		}
		v := pick(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	return carbon.VegetationPercentages{
		Bare:     get(ClassBare),
		Sparse:   get(ClassSparse),
		Moderate: get(ClassModerate),
		Dense:    get(ClassDense),
	}
}

// Clone returns a deep copy of r.
func (r *ChangeResult) Clone() *ChangeResult {
	if r == nil {
		return nil
	}
	out := &ChangeResult{TotalAreaHa: r.TotalAreaHa}
	if r.Classes != nil {
		out.Classes = make(map[string]ClassChange, len(r.Classes))
		for k, v := range r.Classes {
			out.Classes[k] = v
		}
	}
	if r.URLs != nil {
		out.URLs = append([]string(nil), r.URLs...)
	}
	return out
}

// Normalize rescales p to sum to 100 when its sum is positive and falls
// outside the estimator's tolerance. It reports whether p was rescaled.
// An all-zero distribution is returned unchanged and is rejected by the
// estimator.
func Normalize(p carbon.VegetationPercentages) (carbon.VegetationPercentages, bool) {
	sum := p.Sum()
	if sum > 0 && math.Abs(sum-carbon.PercentTotal) > carbon.PercentSumTolerance {
		return p.Scale(carbon.PercentTotal / sum), true
	}
	return p, false
}

// Drift returns how far the class sum of p is from 100.
func Drift(p carbon.VegetationPercentages) float64 {
	return math.Abs(p.Sum() - carbon.PercentTotal)
}
