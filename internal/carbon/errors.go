package carbon

import (
	"errors"
	"fmt"
)

// ErrInvalidPercentages is matched by every InvalidInputError.
var ErrInvalidPercentages = errors.New("invalid vegetation percentages")

// InvalidInputError reports class percentages that do not add up to 100.
type InvalidInputError struct {
	// Sum is the actual total of the four percentages.
	Sum float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("Percentages must sum to 100 (got %.3f)", e.Sum)
}

// Is reports whether target is ErrInvalidPercentages.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidPercentages
}
