package services

import "math"

// ToLoading converts a logistic IRT discrimination into a standardized factor
// loading:
//
//	loading = (a/D) / sqrt(1 + (a/D)^2)
//
// D reconciles the logistic and normal-ogive parameterizations (commonly 1.7)
// and must be supplied by the caller; the right value depends on which
// normal-ogive approximation is being matched. The transform is applied per
// item with no cross-item normalization, is strictly increasing in a, and
// stays in [0, 1) for a >= 0.
func ToLoading(discrimination, d float64) float64 {
	s := discrimination / d
	return s / math.Sqrt(1+s*s)
}
