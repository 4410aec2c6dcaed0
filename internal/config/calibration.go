package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/satfarm/farmcarbon/internal/carbon"
)

// LoadCalibration reads estimator coefficients from a YAML file. Keys that
// are absent keep their defaults; an empty path returns the defaults.
//
//	k: 7500
//	cf: 0.45
//	root_ratio: 0.20
//	buffer_rate: 0.15
//	uncertainty: 0.10
func LoadCalibration(path string) (carbon.Coefficients, error) {
	c := carbon.DefaultCoefficients()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return carbon.Coefficients{}, fmt.Errorf("failed to read calibration file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return carbon.Coefficients{}, fmt.Errorf("failed to parse calibration file: %w", err)
	}
	if err := ValidateCoefficients(c); err != nil {
		return carbon.Coefficients{}, fmt.Errorf("invalid calibration %s: %w", path, err)
	}
	return c, nil
}

// ValidateCoefficients rejects coefficients that would make the credit
// arithmetic meaningless.
func ValidateCoefficients(c carbon.Coefficients) error {
	var errs []error
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative number (got %v)", name, v))
		}
	}
	check("k", c.K)
	check("cf", c.CF)
	check("root_ratio", c.RootRatio)
	check("buffer_rate", c.BufferRate)
	check("uncertainty", c.Uncertainty)

	if c.BufferRate >= 1 {
		errs = append(errs, fmt.Errorf("buffer_rate must be below 1 (got %v)", c.BufferRate))
	}
	if c.Uncertainty >= 1 {
		errs = append(errs, fmt.Errorf("uncertainty must be below 1 (got %v)", c.Uncertainty))
	}
	return errors.Join(errs...)
}
