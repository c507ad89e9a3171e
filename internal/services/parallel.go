package services

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ParallelAnalysis compares the observed correlation eigenvalues against the
// mean eigenvalues of same-shaped random normal data. Retained counts the
// leading eigenvalues exceeding their random counterparts. The seed is
// recorded so the resampling is reproducible; no ambient process-wide seed
// is ever consulted.
type ParallelAnalysis struct {
	Seed         int64     `json:"seed"`
	Replications int       `json:"replications"`
	Observed     []float64 `json:"observed"`
	RandomMean   []float64 `json:"random_mean"`
	Retained     int       `json:"retained"`
}

// RunParallelAnalysis performs seeded parallel analysis on the complete rows
// of m (rows with any missing cell are dropped, matching the listwise
// treatment of the correlation step).
func RunParallelAnalysis(m *ResponseMatrix, replications int, seed int64) (*ParallelAnalysis, error) {
	if replications <= 0 {
		return nil, NewInvalidError("parallel analysis needs at least one replication")
	}
	j := m.NItems()
	if j < 2 {
		return nil, NewInvalidError("parallel analysis needs at least two items")
	}
	var complete [][]float64
	for _, row := range m.Rows {
		ok := true
		for _, v := range row {
			if v == Missing {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		fr := make([]float64, j)
		for c, v := range row {
			fr[c] = float64(v)
		}
		complete = append(complete, fr)
	}
	n := len(complete)
	if n < 3 {
		return nil, NewInvalidError("parallel analysis needs at least three complete rows")
	}

	observed, err := eigenvaluesOf(complete)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	randomMean := make([]float64, j)
	for rep := 0; rep < replications; rep++ {
		sim := make([][]float64, n)
		for i := range sim {
			sim[i] = make([]float64, j)
			for c := range sim[i] {
				sim[i][c] = rng.NormFloat64()
			}
		}
		ev, err := eigenvaluesOf(sim)
		if err != nil {
			return nil, err
		}
		for c := range randomMean {
			randomMean[c] += ev[c] / float64(replications)
		}
	}

	retained := 0
	for c := range observed {
		if observed[c] > randomMean[c] {
			retained++
		} else {
			break
		}
	}
	return &ParallelAnalysis{
		Seed:         seed,
		Replications: replications,
		Observed:     observed,
		RandomMean:   randomMean,
		Retained:     retained,
	}, nil
}

// eigenvaluesOf returns the correlation matrix eigenvalues of a complete
// numeric matrix, descending.
func eigenvaluesOf(rows [][]float64) ([]float64, error) {
	n, j := len(rows), len(rows[0])
	data := make([]float64, 0, n*j)
	for _, r := range rows {
		data = append(data, r...)
	}
	x := mat.NewDense(n, j, data)
	corr := mat.NewSymDense(j, nil)
	stat.CorrelationMatrix(corr, x, nil)
	for c := 0; c < j; c++ {
		// A constant column yields NaN correlations and meaningless
		// eigenvalues; refuse rather than return garbage.
		if corr.At(c, c) != corr.At(c, c) {
			return nil, NewInvalidError("item column has zero variance")
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(corr, false) {
		return nil, NewInvalidError("correlation eigendecomposition failed")
	}
	vals := eig.Values(nil)
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	return vals, nil
}
