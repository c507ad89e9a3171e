package services

import (
	"math"
	"math/rand"
	"testing"
)

// oneFactorBinary simulates dichotomous responses driven by a single latent
// trait, deterministic for a given seed.
func oneFactorBinary(n, j int, seed int64) *ResponseMatrix {
	rng := rand.New(rand.NewSource(seed))
	items := make([]Item, j)
	for c := range items {
		items[c] = Item{Name: itemName(c), MaxCategory: 1}
	}
	rows := make([][]int, n)
	for i := range rows {
		theta := rng.NormFloat64()
		rows[i] = make([]int, j)
		for c := range rows[i] {
			p := 1 / (1 + math.Exp(-1.5*theta))
			if rng.Float64() < p {
				rows[i][c] = 1
			}
		}
	}
	return &ResponseMatrix{Items: items, Rows: rows}
}

func itemName(c int) string { return string(rune('A'+c)) + "1" }

func TestRunParallelAnalysis_Deterministic(t *testing.T) {
	m := oneFactorBinary(200, 5, 42)
	a, err := RunParallelAnalysis(m, 20, 7)
	if err != nil {
		t.Fatalf("parallel analysis: %v", err)
	}
	b, err := RunParallelAnalysis(m, 20, 7)
	if err != nil {
		t.Fatalf("parallel analysis repeat: %v", err)
	}
	for c := range a.RandomMean {
		if a.RandomMean[c] != b.RandomMean[c] {
			t.Fatalf("same seed produced different resampling at %d: %f vs %f", c, a.RandomMean[c], b.RandomMean[c])
		}
	}
	if a.Seed != 7 {
		t.Fatalf("seed not recorded: %d", a.Seed)
	}
}

func TestRunParallelAnalysis_OneFactorRetained(t *testing.T) {
	m := oneFactorBinary(500, 6, 11)
	pa, err := RunParallelAnalysis(m, 25, 3)
	if err != nil {
		t.Fatalf("parallel analysis: %v", err)
	}
	if pa.Retained < 1 {
		t.Fatalf("one-factor data should retain at least one factor, got %d", pa.Retained)
	}
	if len(pa.Observed) != 6 || len(pa.RandomMean) != 6 {
		t.Fatalf("eigenvalue vectors have wrong length: %d, %d", len(pa.Observed), len(pa.RandomMean))
	}
}

func TestRunParallelAnalysis_Validation(t *testing.T) {
	m := oneFactorBinary(50, 4, 1)
	if _, err := RunParallelAnalysis(m, 0, 1); err == nil {
		t.Fatal("zero replications must fail")
	}
	tiny := &ResponseMatrix{Items: m.Items[:1], Rows: [][]int{{1}, {0}}}
	if _, err := RunParallelAnalysis(tiny, 5, 1); err == nil {
		t.Fatal("single item must fail")
	}
}
