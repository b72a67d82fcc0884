// internal/matching/weights.go
package matching

import (
	"fmt"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"
)

const (
	MinWeight   = 0
	MaxWeight   = 100
	TotalWeight = 100
)

// ValidateWeights checks every factor weight is within [0,100] and that the five sum
// to exactly 100. Invalid weights are reported, never corrected.
func ValidateWeights(w models.FactorValues) error {
	for _, f := range models.Factors {
		v := w.Get(f)
		if v < MinWeight || v > MaxWeight {
			return errors.NewInvalidWeightSpecError(
				fmt.Sprintf("weight %s=%d outside [%d,%d]", f, v, MinWeight, MaxWeight),
				map[string]interface{}{"factor": string(f), "value": v},
			)
		}
	}
	if sum := w.Sum(); sum != TotalWeight {
		return errors.NewInvalidWeightSpecError(
			fmt.Sprintf("weights sum to %d, expected %d", sum, TotalWeight),
			map[string]interface{}{"sum": sum},
		)
	}
	return nil
}

// ImpactForWeight grades how much a factor can move the overall score.
func ImpactForWeight(weight int) models.Impact {
	switch {
	case weight >= 25:
		return models.ImpactHigh
	case weight >= 10:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}
