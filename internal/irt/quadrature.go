package irt

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// quadrature holds node locations and normalized weights for integrating a
// function of the latent trait against the standard normal density:
//
//	integral f(theta) phi(theta) dtheta  ~=  sum_q W[q] * f(Theta[q])
type quadrature struct {
	Theta []float64
	W     []float64
}

// gaussHermite builds an n-point rule from gonum's Hermite locations,
// rescaled from the e^{-x^2} weight to the N(0,1) density.
func gaussHermite(n int) quadrature {
	x := make([]float64, n)
	w := make([]float64, n)
	quad.Hermite{}.FixedLocations(x, w, math.Inf(-1), math.Inf(1))
	q := quadrature{Theta: make([]float64, n), W: make([]float64, n)}
	for i := 0; i < n; i++ {
		q.Theta[i] = x[i] * math.Sqrt2
		q.W[i] = w[i] / math.SqrtPi
	}
	return q
}
