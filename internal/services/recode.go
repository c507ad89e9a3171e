package services

// RecodeInRange returns a copy of m where every cell outside [0, K] for its
// item is set to Missing. The source's sentinel codes (e.g., 9 on a 0..3
// scale) become Missing rather than being clipped to 3.
func RecodeInRange(m *ResponseMatrix) *ResponseMatrix {
	out := m.clone()
	for i, row := range out.Rows {
		for j, v := range row {
			if v == Missing {
				continue
			}
			if v < 0 || v > out.Items[j].MaxCategory {
				out.Rows[i][j] = Missing
			}
		}
	}
	return out
}

// Dichotomize maps every non-missing cell with the fixed rule value > 0 -> 1,
// else 0. Missing stays Missing. Column correspondence and row set are
// preserved; the returned matrix declares MaxCategory 1 for every item.
// The rule is idempotent: dichotomizing twice equals dichotomizing once.
func Dichotomize(m *ResponseMatrix) *ResponseMatrix {
	out := m.clone()
	for j := range out.Items {
		out.Items[j].MaxCategory = 1
	}
	for i, row := range out.Rows {
		for j, v := range row {
			if v == Missing {
				continue
			}
			if v > 0 {
				out.Rows[i][j] = 1
			} else {
				out.Rows[i][j] = 0
			}
		}
	}
	return out
}
