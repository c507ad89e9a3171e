package services

// Missing marks a cell with no usable response. Out-of-range raw values are
// recoded to Missing rather than clipped, so a sentinel outside any ordinal
// range is required.
const Missing = -1

// Item is one question of an instrument. MaxCategory is K for a K+1 level
// ordinal response (e.g., 3 for a 0..3 scale).
type Item struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	MaxCategory int    `json:"max_category"`
}

// ResponseMatrix holds one row per respondent and one column per item.
// Cells are ordinal codes in [0, item.MaxCategory] or Missing. Row order
// carries no meaning.
type ResponseMatrix struct {
	Items []Item  `json:"items"`
	Rows  [][]int `json:"rows"`
}

// NRows returns the respondent count.
func (m *ResponseMatrix) NRows() int { return len(m.Rows) }

// NItems returns the item count.
func (m *ResponseMatrix) NItems() int { return len(m.Items) }

// Column extracts one item's responses across all respondents.
func (m *ResponseMatrix) Column(j int) []int {
	col := make([]int, len(m.Rows))
	for i, row := range m.Rows {
		col[i] = row[j]
	}
	return col
}

// ItemIndex returns the column index for an item name, or -1.
func (m *ResponseMatrix) ItemIndex(name string) int {
	for j, it := range m.Items {
		if it.Name == name {
			return j
		}
	}
	return -1
}

// clone copies items and rows so transforms never mutate their input.
func (m *ResponseMatrix) clone() *ResponseMatrix {
	items := make([]Item, len(m.Items))
	copy(items, m.Items)
	rows := make([][]int, len(m.Rows))
	for i, r := range m.Rows {
		rows[i] = make([]int, len(r))
		copy(rows[i], r)
	}
	return &ResponseMatrix{Items: items, Rows: rows}
}

// LoadingVector maps item name to a standardized factor loading.
type LoadingVector map[string]float64

// ComparisonRow pairs one item's values from two loading vectors.
// RatioOK is false when B is zero and the ratio is undefined.
type ComparisonRow struct {
	Item    string  `json:"item"`
	A       float64 `json:"a"`
	B       float64 `json:"b"`
	Diff    float64 `json:"diff"`
	Ratio   float64 `json:"ratio"`
	RatioOK bool    `json:"ratio_ok"`
}

// ComparisonTable is a key-joined elementwise comparison of two vectors,
// sorted by item name.
type ComparisonTable struct {
	Rows []ComparisonRow `json:"rows"`
}
