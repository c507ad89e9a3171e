package irt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Options tunes the marginal maximum likelihood fit. The zero value selects
// the defaults below.
type Options struct {
	MaxIterations int     // optimizer major iterations (default 500)
	Tolerance     float64 // gradient norm convergence threshold (default 1e-6)
	Quadrature    int     // Gauss-Hermite node count (default 21)
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 500
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	if o.Quadrature <= 0 {
		o.Quadrature = 21
	}
	return o
}

// Fit estimates the given family on m by maximizing the marginal likelihood,
// integrating the latent trait out over a standard normal distribution.
// Missing cells are excluded from each respondent's likelihood contribution,
// never imputed. Identification is by the trait's fixed N(0,1) distribution.
//
// Convergence failure is reported as an error wrapping ErrNoConvergence with
// the family in the message; a degenerate fit is never returned.
func Fit(m *Matrix, family Family, opts Options) (*FittedModel, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	switch family {
	case OnePL, TwoPL:
		if !m.dichotomous() {
			return nil, fmt.Errorf("%w: %s on a polytomous matrix", ErrDichotomousOnly, family)
		}
	case RSM:
		for j := 1; j < len(m.MaxCat); j++ {
			if m.MaxCat[j] != m.MaxCat[0] {
				return nil, fmt.Errorf("irt: RSM requires a common category count, item %s has %d levels",
					m.Names[j], m.MaxCat[j]+1)
			}
		}
	case GRM:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}

	q := gaussHermite(opts.Quadrature)
	x0 := initialParams(m, family)

	obj := func(p []float64) float64 {
		fm := unpack(p, m, family)
		return -logLik(fm, m, q)
	}
	// BFGS requires a gradient; Minimize only falls back to a gradient-free
	// method when no method is given, so supply finite differences.
	problem := optimize.Problem{
		Func: obj,
		Grad: func(grad, p []float64) {
			fd.Gradient(grad, obj, p, nil)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   opts.MaxIterations,
		GradientThreshold: opts.Tolerance,
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if err != nil {
		return nil, fmt.Errorf("%w: family %s: %v", ErrNoConvergence, family, err)
	}
	if result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, fmt.Errorf("%w: family %s: non-finite likelihood at solution", ErrNoConvergence, family)
	}
	// Hitting the iteration budget is a normal termination for the optimizer
	// but not a stable solution for us.
	if result.Status == optimize.IterationLimit {
		return nil, fmt.Errorf("%w: family %s: iteration budget %d exhausted", ErrNoConvergence, family, opts.MaxIterations)
	}

	fm := unpack(result.X, m, family)
	fm.LogLik = -result.F
	fm.NParams = len(result.X)
	fm.AIC = AIC(fm.NParams, fm.LogLik)
	return fm, nil
}

// logLik is the marginal log-likelihood of m under fm, summed over
// respondents and integrated over the quadrature rule.
func logLik(fm *FittedModel, m *Matrix, q quadrature) float64 {
	const floor = 1e-10
	nodes := len(q.Theta)
	j := len(m.Names)

	// Per-node per-item category probabilities, computed once per evaluation.
	probs := make([][][]float64, nodes)
	for n := 0; n < nodes; n++ {
		probs[n] = make([][]float64, j)
		for c := 0; c < j; c++ {
			probs[n][c] = fm.CategoryProbs(c, q.Theta[n])
		}
	}

	var ll float64
	for _, row := range m.Rows {
		var li float64
		for n := 0; n < nodes; n++ {
			prod := q.W[n]
			for c, v := range row {
				if v == Missing {
					continue
				}
				p := probs[n][c][v]
				if p < floor {
					p = floor
				}
				prod *= p
			}
			li += prod
		}
		if li < floor {
			li = floor
		}
		ll += math.Log(li)
	}
	return ll
}

// Parameter packing. Discriminations are estimated on the log scale so the
// optimizer works unconstrained; GRM thresholds beyond the first are packed
// as log-increments to keep them ordered.

func initialParams(m *Matrix, family Family) []float64 {
	j := len(m.Names)
	switch family {
	case OnePL:
		p := make([]float64, j+1)
		for c := 0; c < j; c++ {
			p[c] = -logit(propAtLeast(m, c, 1))
		}
		return p
	case TwoPL:
		p := make([]float64, 2*j)
		for c := 0; c < j; c++ {
			p[2*c] = -logit(propAtLeast(m, c, 1))
		}
		return p
	case GRM:
		var p []float64
		for c := 0; c < j; c++ {
			k := m.MaxCat[c]
			prev := -logit(propAtLeast(m, c, 1))
			p = append(p, prev)
			for cat := 2; cat <= k; cat++ {
				b := -logit(propAtLeast(m, c, cat))
				inc := b - prev
				if inc < 0.1 {
					inc = 0.1
				}
				p = append(p, math.Log(inc))
				prev = b
			}
			p = append(p, 0) // log discrimination
		}
		return p
	case RSM:
		k := m.MaxCat[0]
		p := make([]float64, j+(k-1)+1)
		for c := 0; c < j; c++ {
			p[c] = -logit(propAtLeast(m, c, 1))
		}
		return p
	}
	return nil
}

func unpack(p []float64, m *Matrix, family Family) *FittedModel {
	j := len(m.Names)
	fm := &FittedModel{Family: family, Items: make([]ItemParams, j)}
	switch family {
	case OnePL:
		a := math.Exp(p[j])
		for c := 0; c < j; c++ {
			fm.Items[c] = ItemParams{
				Name:                 m.Names[c],
				Difficulty:           []float64{p[c]},
				Discrimination:       a,
				SharedDiscrimination: true,
			}
		}
	case TwoPL:
		for c := 0; c < j; c++ {
			fm.Items[c] = ItemParams{
				Name:           m.Names[c],
				Difficulty:     []float64{p[2*c]},
				Discrimination: math.Exp(p[2*c+1]),
			}
		}
	case GRM:
		idx := 0
		for c := 0; c < j; c++ {
			k := m.MaxCat[c]
			diff := make([]float64, k)
			diff[0] = p[idx]
			idx++
			for cat := 1; cat < k; cat++ {
				diff[cat] = diff[cat-1] + math.Exp(p[idx])
				idx++
			}
			fm.Items[c] = ItemParams{
				Name:           m.Names[c],
				Difficulty:     diff,
				Discrimination: math.Exp(p[idx]),
			}
			idx++
		}
	case RSM:
		k := m.MaxCat[0]
		a := math.Exp(p[len(p)-1])
		// Steps sum to zero for identification.
		steps := make([]float64, k)
		var sum float64
		for c := 0; c < k-1; c++ {
			steps[c] = p[j+c]
			sum += steps[c]
		}
		steps[k-1] = -sum
		fm.Steps = steps
		for c := 0; c < j; c++ {
			fm.Items[c] = ItemParams{
				Name:                 m.Names[c],
				Difficulty:           []float64{p[c]},
				Discrimination:       a,
				SharedDiscrimination: true,
			}
		}
	}
	return fm
}

// propAtLeast is the observed proportion of non-missing responses >= cat for
// item j, clamped away from 0 and 1 so the initial logit stays finite.
func propAtLeast(m *Matrix, j, cat int) float64 {
	var n, hits int
	for _, row := range m.Rows {
		if row[j] == Missing {
			continue
		}
		n++
		if row[j] >= cat {
			hits++
		}
	}
	if n == 0 {
		return 0.5
	}
	p := float64(hits) / float64(n)
	if p < 0.02 {
		p = 0.02
	}
	if p > 0.98 {
		p = 0.98
	}
	return p
}

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
