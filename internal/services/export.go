package services

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/soaringjerry/Psymetric/internal/irt"
)

// ExportParametersCSV renders a fitted model's per-item table. Polytomous
// items emit one row per threshold.
func ExportParametersCSV(fm *irt.FittedModel) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"item", "threshold", "difficulty", "discrimination", "shared_discrimination"})
	for _, it := range fm.Items {
		for c, b := range it.Difficulty {
			rec := []string{
				it.Name,
				strconv.Itoa(c + 1),
				ftoa(b),
				ftoa(it.Discrimination),
				strconv.FormatBool(it.SharedDiscrimination),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportComparisonCSV renders a comparison table. An undefined ratio is an
// empty field, not a fabricated number.
func ExportComparisonCSV(t *ComparisonTable) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"item", "a", "b", "diff", "ratio"})
	for _, row := range t.Rows {
		ratio := ""
		if row.RatioOK {
			ratio = ftoa(row.Ratio)
		}
		rec := []string{row.Item, ftoa(row.A), ftoa(row.B), ftoa(row.Diff), ratio}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 6, 64) }
