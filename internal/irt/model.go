// Package irt fits logistic latent-trait models (1PL, 2PL, GRM, RSM) by
// marginal maximum likelihood. The latent trait is assumed standard normal
// and integrated out with Gauss-Hermite quadrature; the optimizer is
// gonum/optimize. All four families are one logistic model differing only in
// which parameters are item-specific versus shared.
package irt

import (
	"errors"
	"fmt"
	"math"
)

// Family tags a fitted model with its parameterization.
type Family string

const (
	OnePL Family = "1PL"
	TwoPL Family = "2PL"
	GRM   Family = "GRM"
	RSM   Family = "RSM"
)

// Missing marks a cell excluded from the likelihood (ignorable nonresponse).
const Missing = -1

var (
	// ErrNoConvergence indicates the optimizer did not reach a stable
	// solution, or the solution had a non-finite likelihood.
	ErrNoConvergence = errors.New("irt: optimizer failed to converge")
	// ErrEmptyMatrix indicates a matrix with no rows or no items.
	ErrEmptyMatrix = errors.New("irt: response matrix has no rows or no items")
	// ErrBadCategory indicates a cell outside [0, max category] that is not
	// the Missing sentinel. Recode out-of-range values before fitting.
	ErrBadCategory = errors.New("irt: response outside declared category range")
	// ErrDichotomousOnly indicates a polytomous matrix passed to 1PL/2PL.
	ErrDichotomousOnly = errors.New("irt: family requires dichotomous responses")
	// ErrUnknownFamily indicates an unrecognized model family tag.
	ErrUnknownFamily = errors.New("irt: unknown model family")
)

// Matrix is the fitter's input: one row per respondent, one column per item,
// cells in [0, MaxCat[j]] or Missing.
type Matrix struct {
	Names  []string
	MaxCat []int
	Rows   [][]int
}

func (m *Matrix) validate() error {
	if len(m.Rows) == 0 || len(m.Names) == 0 {
		return ErrEmptyMatrix
	}
	if len(m.MaxCat) != len(m.Names) {
		return fmt.Errorf("irt: %d names but %d category sizes", len(m.Names), len(m.MaxCat))
	}
	for i, row := range m.Rows {
		if len(row) != len(m.Names) {
			return fmt.Errorf("irt: row %d has %d cells, want %d", i, len(row), len(m.Names))
		}
		for j, v := range row {
			if v == Missing {
				continue
			}
			if v < 0 || v > m.MaxCat[j] {
				return fmt.Errorf("%w: row %d item %s value %d", ErrBadCategory, i, m.Names[j], v)
			}
		}
	}
	return nil
}

func (m *Matrix) dichotomous() bool {
	for _, k := range m.MaxCat {
		if k != 1 {
			return false
		}
	}
	return true
}

// ItemParams holds one item's estimates. Difficulty has one entry per
// non-baseline category threshold (a single entry for dichotomous items).
// SharedDiscrimination is set for families that constrain discrimination
// equal across items (1PL, RSM); Discrimination then repeats the shared value.
type ItemParams struct {
	Name                 string    `json:"name"`
	Difficulty           []float64 `json:"difficulty"`
	Discrimination       float64   `json:"discrimination"`
	SharedDiscrimination bool      `json:"shared_discrimination"`
}

// FittedModel is the output of Fit. Steps carries the RSM shared category
// steps and is nil for other families.
type FittedModel struct {
	Family  Family       `json:"family"`
	Items   []ItemParams `json:"items"`
	Steps   []float64    `json:"steps,omitempty"`
	LogLik  float64      `json:"log_lik"`
	NParams int          `json:"n_params"`
	AIC     float64      `json:"aic"`
}

// logistic is the item response function's link.
func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// CategoryProbs returns P(X=c | theta) for c = 0..K of item j.
//
// Dichotomous families use P(1) = logistic(a(theta-b)). GRM models the
// cumulative P(X>=c) = logistic(a(theta-b_c)) and differences adjacent
// cumulatives. RSM is the adjacent-category (partial credit) form with
// item location Difficulty[0] and shared Steps.
func (fm *FittedModel) CategoryProbs(j int, theta float64) []float64 {
	it := fm.Items[j]
	switch fm.Family {
	case OnePL, TwoPL:
		p := logistic(it.Discrimination * (theta - it.Difficulty[0]))
		return []float64{1 - p, p}
	case GRM:
		k := len(it.Difficulty)
		// cum[c] = P(X >= c); cum[0] = 1 by construction.
		cum := make([]float64, k+2)
		cum[0] = 1
		for c := 1; c <= k; c++ {
			cum[c] = logistic(it.Discrimination * (theta - it.Difficulty[c-1]))
		}
		cum[k+1] = 0
		probs := make([]float64, k+1)
		for c := 0; c <= k; c++ {
			probs[c] = cum[c] - cum[c+1]
		}
		return probs
	case RSM:
		k := len(fm.Steps)
		loc := it.Difficulty[0]
		// Numerator exponents accumulate a(theta - loc - step_c).
		exps := make([]float64, k+1)
		sum := 0.0
		maxExp := 0.0
		for c := 1; c <= k; c++ {
			sum += it.Discrimination * (theta - loc - fm.Steps[c-1])
			exps[c] = sum
			if sum > maxExp {
				maxExp = sum
			}
		}
		var denom float64
		probs := make([]float64, k+1)
		for c := 0; c <= k; c++ {
			probs[c] = math.Exp(exps[c] - maxExp)
			denom += probs[c]
		}
		for c := range probs {
			probs[c] /= denom
		}
		return probs
	}
	return nil
}
