// Package cfa estimates a one-factor ordinal confirmatory factor model:
// polychoric correlations by two-step maximum likelihood, then standardized
// loadings by principal-axis extraction on the reduced correlation matrix.
package cfa

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrTooFewObservations indicates fewer than two complete pairs.
	ErrTooFewObservations = errors.New("cfa: too few complete observation pairs")
	// ErrDegenerateMargin indicates an item whose observed responses all fall
	// in one category, leaving its thresholds unidentified.
	ErrDegenerateMargin = errors.New("cfa: item margin has a single observed category")
	// ErrNoConvergence indicates the correlation search failed.
	ErrNoConvergence = errors.New("cfa: correlation estimate did not converge")
)

// Missing marks an excluded cell, matching the pipeline's recoding sentinel.
const Missing = -1

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Polychoric estimates the correlation of the bivariate normal latent pair
// assumed to underlie two ordinal variables x and y with kx+1 and ky+1
// categories. Thresholds come from the marginal proportions (step one); the
// correlation maximizes the contingency-table likelihood (step two) over a
// Fisher-z parameterization so the optimizer is unconstrained. Pairs with a
// missing member are dropped.
func Polychoric(x, y []int, kx, ky int) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("cfa: length mismatch %d vs %d", len(x), len(y))
	}
	counts := make([][]float64, kx+1)
	for a := range counts {
		counts[a] = make([]float64, ky+1)
	}
	n := 0
	for i := range x {
		if x[i] == Missing || y[i] == Missing {
			continue
		}
		if x[i] < 0 || x[i] > kx || y[i] < 0 || y[i] > ky {
			return 0, fmt.Errorf("cfa: response out of range at pair %d", i)
		}
		counts[x[i]][y[i]]++
		n++
	}
	if n < 2 {
		return 0, ErrTooFewObservations
	}

	tx, err := thresholds(marginals(counts, true), n)
	if err != nil {
		return 0, err
	}
	ty, err := thresholds(marginals(counts, false), n)
	if err != nil {
		return 0, err
	}

	negLogLik := func(p []float64) float64 {
		rho := math.Tanh(p[0])
		var ll float64
		for a := 0; a <= kx; a++ {
			for b := 0; b <= ky; b++ {
				if counts[a][b] == 0 {
					continue
				}
				pi := cellProb(tx, ty, a, b, rho)
				if pi < 1e-12 {
					pi = 1e-12
				}
				ll += counts[a][b] * math.Log(pi)
			}
		}
		return -ll
	}

	// BFGS needs a gradient; finite differences are fine for this
	// one-dimensional search.
	problem := optimize.Problem{
		Func: negLogLik,
		Grad: func(grad, p []float64) {
			fd.Gradient(grad, negLogLik, p, nil)
		},
	}
	result, err := optimize.Minimize(problem, []float64{0}, nil, &optimize.BFGS{})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoConvergence, err)
	}
	rho := math.Tanh(result.X[0])
	return rho, nil
}

// marginals sums the contingency table over the other variable.
func marginals(counts [][]float64, byRow bool) []float64 {
	if byRow {
		m := make([]float64, len(counts))
		for a := range counts {
			for _, c := range counts[a] {
				m[a] += c
			}
		}
		return m
	}
	m := make([]float64, len(counts[0]))
	for a := range counts {
		for b, c := range counts[a] {
			m[b] += c
		}
	}
	return m
}

// thresholds converts marginal category counts into normal quantiles of the
// cumulative proportions. K categories yield K-1 finite thresholds.
func thresholds(margin []float64, n int) ([]float64, error) {
	nonzero := 0
	for _, m := range margin {
		if m > 0 {
			nonzero++
		}
	}
	if nonzero < 2 {
		return nil, ErrDegenerateMargin
	}
	t := make([]float64, len(margin)-1)
	cum := 0.0
	for c := 0; c < len(margin)-1; c++ {
		cum += margin[c]
		p := cum / float64(n)
		if p < 1e-6 {
			p = 1e-6
		}
		if p > 1-1e-6 {
			p = 1 - 1e-6
		}
		t[c] = stdNormal.Quantile(p)
	}
	return t, nil
}

// cellProb is the bivariate normal mass of cell (a, b), the double difference
// of the joint CDF at the cell's corner thresholds.
func cellProb(tx, ty []float64, a, b int, rho float64) float64 {
	hi := func(t []float64, c int) float64 {
		if c == len(t) {
			return math.Inf(1)
		}
		return t[c]
	}
	lo := func(t []float64, c int) float64 {
		if c == 0 {
			return math.Inf(-1)
		}
		return t[c-1]
	}
	p := bvnCDF(hi(tx, a), hi(ty, b), rho) -
		bvnCDF(lo(tx, a), hi(ty, b), rho) -
		bvnCDF(hi(tx, a), lo(ty, b), rho) +
		bvnCDF(lo(tx, a), lo(ty, b), rho)
	if p < 0 {
		p = 0
	}
	return p
}

// bvnCDF is the standard bivariate normal CDF P(X <= h, Y <= k) with
// correlation rho, by the Drezner-Wesolowsky identity: the independent
// product plus an integral over the correlation, evaluated with fixed
// Gauss-Legendre quadrature.
func bvnCDF(h, k, rho float64) float64 {
	switch {
	case math.IsInf(h, -1) || math.IsInf(k, -1):
		return 0
	case math.IsInf(h, 1):
		return stdNormal.CDF(k)
	case math.IsInf(k, 1):
		return stdNormal.CDF(h)
	}
	if rho > 0.9999 {
		rho = 0.9999
	}
	if rho < -0.9999 {
		rho = -0.9999
	}
	integrand := func(r float64) float64 {
		om := 1 - r*r
		return math.Exp(-(h*h+k*k-2*r*h*k)/(2*om)) / math.Sqrt(om)
	}
	// quad.Fixed needs an increasing interval; flip the sign for negative rho.
	var integral float64
	if rho >= 0 {
		integral = quad.Fixed(integrand, 0, rho, 30, quad.Legendre{}, 0)
	} else {
		integral = -quad.Fixed(func(s float64) float64 { return integrand(-s) }, 0, -rho, 30, quad.Legendre{}, 0)
	}
	return stdNormal.CDF(h)*stdNormal.CDF(k) + integral/(2*math.Pi)
}
