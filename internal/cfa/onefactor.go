package cfa

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNotPositive indicates a correlation matrix whose leading eigenvalue is
// not positive, so no factor can be extracted.
var ErrNotPositive = errors.New("cfa: correlation matrix has no positive leading eigenvalue")

// OneFactorResult holds standardized loadings for a single-factor model,
// keyed by item name, plus the polychoric correlation matrix they were
// extracted from (row/column order follows Items).
type OneFactorResult struct {
	Items       []string  `json:"items"`
	Loadings    []float64 `json:"loadings"`
	Correlation *mat.SymDense
}

// FitOneFactor estimates a one-factor ordinal CFA on the columns of a
// response matrix. Correlations between items are polychoric; loadings come
// from principal-axis iteration on the reduced correlation matrix (squared
// loadings on the diagonal), iterated to a fixed point. The result is
// standardized: loadings are correlations with the latent factor, in [-1, 1].
func FitOneFactor(names []string, maxCat []int, rows [][]int) (*OneFactorResult, error) {
	j := len(names)
	if j < 2 {
		return nil, fmt.Errorf("cfa: need at least 2 items, have %d", j)
	}
	col := func(c int) []int {
		out := make([]int, len(rows))
		for i, row := range rows {
			out[i] = row[c]
		}
		return out
	}

	r := mat.NewSymDense(j, nil)
	for a := 0; a < j; a++ {
		r.SetSym(a, a, 1)
		xa := col(a)
		for b := a + 1; b < j; b++ {
			rho, err := Polychoric(xa, col(b), maxCat[a], maxCat[b])
			if err != nil {
				return nil, fmt.Errorf("cfa: polychoric %s x %s: %w", names[a], names[b], err)
			}
			r.SetSym(a, b, rho)
		}
	}

	loadings, err := principalAxis(r)
	if err != nil {
		return nil, err
	}
	return &OneFactorResult{Items: append([]string(nil), names...), Loadings: loadings, Correlation: r}, nil
}

// principalAxis iterates eigen-extraction of the first factor with
// communalities on the diagonal, starting from the largest absolute
// off-diagonal correlation per row.
func principalAxis(r *mat.SymDense) ([]float64, error) {
	j := r.SymmetricDim()
	reduced := mat.NewSymDense(j, nil)
	h2 := make([]float64, j)
	for a := 0; a < j; a++ {
		for b := 0; b < j; b++ {
			if a == b {
				continue
			}
			if v := math.Abs(r.At(a, b)); v > h2[a] {
				h2[a] = v
			}
		}
	}

	const (
		maxIter = 100
		tol     = 1e-6
	)
	loadings := make([]float64, j)
	for iter := 0; iter < maxIter; iter++ {
		for a := 0; a < j; a++ {
			for b := a; b < j; b++ {
				if a == b {
					reduced.SetSym(a, a, h2[a])
				} else {
					reduced.SetSym(a, b, r.At(a, b))
				}
			}
		}
		var eig mat.EigenSym
		if !eig.Factorize(reduced, true) {
			return nil, errors.New("cfa: eigendecomposition failed")
		}
		vals := eig.Values(nil)
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		// EigenSym returns ascending eigenvalues; the factor is the last.
		lead := vals[j-1]
		if lead <= 0 {
			return nil, ErrNotPositive
		}
		scale := math.Sqrt(lead)
		var delta float64
		var sign float64
		for a := 0; a < j; a++ {
			sign += vecs.At(a, j-1)
		}
		flip := 1.0
		if sign < 0 {
			flip = -1.0
		}
		for a := 0; a < j; a++ {
			l := flip * scale * vecs.At(a, j-1)
			if l > 1 {
				l = 1
			}
			if l < -1 {
				l = -1
			}
			delta += math.Abs(l*l - h2[a])
			loadings[a] = l
			h2[a] = l * l
		}
		if delta < tol {
			break
		}
	}
	return loadings, nil
}
