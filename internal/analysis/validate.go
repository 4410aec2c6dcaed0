package analysis

import (
	"errors"
	"fmt"

	"github.com/satfarm/farmcarbon/internal/carbon"
	"github.com/satfarm/farmcarbon/internal/config"
)

// ErrInvalidRequest is wrapped by ValidateInput errors.
var ErrInvalidRequest = errors.New("invalid estimate request")

// ValidateInput rejects requests the estimator would accept but that make no
// sense from an API client: negative area or baseline and out-of-range
// coefficients. Percentages are left to the estimator.
func ValidateInput(in carbon.MonthlyCarbonInput) error {
	if in.AreaHa < 0 {
		return fmt.Errorf("%w: areaHa must not be negative (got %v)", ErrInvalidRequest, in.AreaHa)
	}
	if in.PrevMonthStockTCPerHa < 0 {
		return fmt.Errorf("%w: prevMonthStock_tC_perHa must not be negative (got %v)", ErrInvalidRequest, in.PrevMonthStockTCPerHa)
	}
	if err := config.ValidateCoefficients(in.Coefficients()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
