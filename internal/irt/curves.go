package irt

import "fmt"

// CurvePoint is one (trait level, value) coordinate. Rendering is an external
// concern; callers receive coordinates only.
type CurvePoint struct {
	Theta float64 `json:"theta"`
	Value float64 `json:"value"`
}

// ItemCurves holds one item's characteristic curves, one curve per response
// category (two for dichotomous items).
type ItemCurves struct {
	Item       string         `json:"item"`
	Categories [][]CurvePoint `json:"categories"`
}

// Grid returns trait levels from lo to hi inclusive at the given step.
// The conventional reporting range is [-6, 6].
func Grid(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	var g []float64
	for t := lo; t <= hi+step/2; t += step {
		g = append(g, t)
	}
	return g
}

// ICC computes the item characteristic curve coordinates for one item over
// the grid.
func ICC(fm *FittedModel, item string, grid []float64) (*ItemCurves, error) {
	j := itemIndex(fm, item)
	if j < 0 {
		return nil, fmt.Errorf("irt: no item %q in fitted model", item)
	}
	ncat := len(fm.CategoryProbs(j, 0))
	out := &ItemCurves{Item: item, Categories: make([][]CurvePoint, ncat)}
	for c := range out.Categories {
		out.Categories[c] = make([]CurvePoint, len(grid))
	}
	for g, theta := range grid {
		probs := fm.CategoryProbs(j, theta)
		for c, p := range probs {
			out.Categories[c][g] = CurvePoint{Theta: theta, Value: p}
		}
	}
	return out, nil
}

// Information computes the item information curve I(theta). For dichotomous
// items this is the closed form a^2 P (1-P); polytomous families use the
// category-score form sum_c (P_c')^2 / P_c with a central-difference
// derivative.
func Information(fm *FittedModel, item string, grid []float64) ([]CurvePoint, error) {
	j := itemIndex(fm, item)
	if j < 0 {
		return nil, fmt.Errorf("irt: no item %q in fitted model", item)
	}
	out := make([]CurvePoint, len(grid))
	a := fm.Items[j].Discrimination
	dichotomous := fm.Family == OnePL || fm.Family == TwoPL
	const h = 1e-5
	for g, theta := range grid {
		if dichotomous {
			p := fm.CategoryProbs(j, theta)[1]
			out[g] = CurvePoint{Theta: theta, Value: a * a * p * (1 - p)}
			continue
		}
		lo := fm.CategoryProbs(j, theta-h)
		hi := fm.CategoryProbs(j, theta+h)
		mid := fm.CategoryProbs(j, theta)
		var info float64
		for c := range mid {
			if mid[c] <= 0 {
				continue
			}
			d := (hi[c] - lo[c]) / (2 * h)
			info += d * d / mid[c]
		}
		out[g] = CurvePoint{Theta: theta, Value: info}
	}
	return out, nil
}

func itemIndex(fm *FittedModel, item string) int {
	for j, it := range fm.Items {
		if it.Name == item {
			return j
		}
	}
	return -1
}
