package dataset

import "github.com/soaringjerry/Psymetric/internal/services"

// ScreenerItems defines the nine-item depression screener analyzed by the
// report: 0..3 ordinal responses, with survey sentinel codes (7 refused,
// 9 don't know) recoded to Missing downstream.
func ScreenerItems() []services.Item {
	return []services.Item{
		{Name: "DPQ010", Label: "Little interest or pleasure in doing things", MaxCategory: 3},
		{Name: "DPQ020", Label: "Feeling down, depressed, or hopeless", MaxCategory: 3},
		{Name: "DPQ030", Label: "Trouble sleeping or sleeping too much", MaxCategory: 3},
		{Name: "DPQ040", Label: "Feeling tired or having little energy", MaxCategory: 3},
		{Name: "DPQ050", Label: "Poor appetite or overeating", MaxCategory: 3},
		{Name: "DPQ060", Label: "Feeling bad about yourself", MaxCategory: 3},
		{Name: "DPQ070", Label: "Trouble concentrating on things", MaxCategory: 3},
		{Name: "DPQ080", Label: "Moving or speaking slowly or too fast", MaxCategory: 3},
		{Name: "DPQ090", Label: "Thoughts you would be better off dead", MaxCategory: 3},
	}
}

// ScreenerFixedWidthLayout slices the screener's fixed-width transport file:
// a six-byte respondent sequence number, then one two-byte field per
// questionnaire item, the trailing functional difficulty item included.
func ScreenerFixedWidthLayout() Layout {
	cols := []Column{{Name: "SEQN", Start: 0, Width: 6}}
	start := 6
	for _, it := range ScreenerItems() {
		cols = append(cols, Column{Name: it.Name, Start: start, Width: 2})
		start += 2
	}
	cols = append(cols, Column{Name: "DPQ100", Start: start, Width: 2})
	return Layout{
		Columns:  cols,
		IDColumn: "SEQN",
		Drop:     []string{"DPQ100"},
		Items:    ScreenerItems(),
	}
}

// ScreenerCSVLayout is the default layout for the screener's CSV export:
// the respondent sequence number is dropped, as is the trailing functional
// difficulty item, which belongs to the questionnaire but not the instrument.
func ScreenerCSVLayout() Layout {
	return Layout{
		IDColumn: "SEQN",
		Drop:     []string{"DPQ100"},
		Items:    ScreenerItems(),
	}
}
