package services

import (
	"testing"

	"github.com/soaringjerry/Psymetric/internal/irt"
)

func TestAnalysisService_Validation(t *testing.T) {
	svc := NewAnalysisService()
	m := oneFactorBinary(50, 4, 1)

	if _, err := svc.Run(nil, AnalysisConfig{Family: irt.TwoPL, D: 1.7}); err == nil {
		t.Fatal("nil matrix must fail")
	}
	if _, err := svc.Run(m, AnalysisConfig{Family: irt.TwoPL}); err == nil {
		t.Fatal("missing scaling constant must fail: D is never hard-coded")
	}
	_, err := svc.Run(m, AnalysisConfig{Family: irt.TwoPL, D: 1.7, Estimator: "EM"})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("unknown estimator: want invalid error, got %v", err)
	}
	_, err = svc.Run(m, AnalysisConfig{Family: "3PL", D: 1.7})
	if err == nil {
		t.Fatal("unknown family must fail")
	}
}

func TestAnalysisService_DuplicateItemName(t *testing.T) {
	svc := NewAnalysisService()
	m := oneFactorBinary(50, 4, 1)
	m.Items = append([]Item(nil), m.Items...)
	m.Items[2].Name = m.Items[0].Name

	_, err := svc.Run(m, AnalysisConfig{Family: irt.TwoPL, D: 1.7})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("duplicate item name: want invalid error, got %v", err)
	}
}

func TestAnalysisService_ItemWithNoUsableResponses(t *testing.T) {
	svc := NewAnalysisService()
	m := oneFactorBinary(50, 4, 1)
	for i := range m.Rows {
		m.Rows[i][1] = 9 // recoded to missing, leaving the column empty
	}

	_, err := svc.Run(m, AnalysisConfig{Family: irt.TwoPL, D: 1.7})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("all-missing item: want invalid error, got %v", err)
	}
}

func TestAnalysisService_RunMML(t *testing.T) {
	svc := NewAnalysisService()
	m := oneFactorBinary(300, 4, 9)

	res, err := svc.Run(m, AnalysisConfig{
		Dichotomize: true,
		Family:      irt.TwoPL,
		Estimator:   EstimatorMML,
		D:           1.7,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ID == "" || res.Model == nil {
		t.Fatal("result missing id or model")
	}
	if len(res.IRTLoadings) != 4 {
		t.Fatalf("want 4 loadings, got %d", len(res.IRTLoadings))
	}
	for name, l := range res.IRTLoadings {
		if l < 0 || l >= 1 {
			t.Errorf("loading %s=%f out of [0,1)", name, l)
		}
	}
	if res.Comparison != nil || res.CFALoadings != nil {
		t.Fatal("MML-only run must not carry CFA output")
	}
}

func TestAnalysisService_RunWLSMVComparison(t *testing.T) {
	svc := NewAnalysisService()
	m := oneFactorBinary(300, 4, 5)

	res, err := svc.Run(m, AnalysisConfig{
		Dichotomize: true,
		Family:      irt.TwoPL,
		Estimator:   EstimatorWLSMV,
		D:           1.7,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Comparison == nil {
		t.Fatal("WLSMV run must compare CFA against converted IRT loadings")
	}
	if len(res.Comparison.Rows) != 4 {
		t.Fatalf("comparison should cover every item, got %d rows", len(res.Comparison.Rows))
	}
	for _, row := range res.Comparison.Rows {
		if _, ok := res.CFALoadings[row.Item]; !ok {
			t.Errorf("comparison row %s not in CFA loadings", row.Item)
		}
		if _, ok := res.IRTLoadings[row.Item]; !ok {
			t.Errorf("comparison row %s not in IRT loadings", row.Item)
		}
	}
}

func TestAnalysisService_SentinelCodesRecoded(t *testing.T) {
	// Raw survey codes above the category maximum must flow through as
	// missing, not abort the fit.
	svc := NewAnalysisService()
	m := oneFactorBinary(200, 4, 13)
	m.Items = append([]Item(nil), m.Items...)
	for j := range m.Items {
		m.Items[j].MaxCategory = 1
	}
	m.Rows[0][0] = 9
	m.Rows[1][2] = 7

	if _, err := svc.Run(m, AnalysisConfig{Family: irt.OnePL, Estimator: EstimatorMML, D: 1.7}); err != nil {
		t.Fatalf("sentinel codes should be recoded to missing: %v", err)
	}
}

func TestLoadingsFromModel_SharedDiscrimination(t *testing.T) {
	fm := &irt.FittedModel{
		Family: irt.OnePL,
		Items: []irt.ItemParams{
			{Name: "A1", Difficulty: []float64{0}, Discrimination: 1.2, SharedDiscrimination: true},
			{Name: "B1", Difficulty: []float64{1}, Discrimination: 1.2, SharedDiscrimination: true},
		},
	}
	lv := LoadingsFromModel(fm, 1.7)
	if lv["A1"] != lv["B1"] {
		t.Fatalf("shared discrimination must yield equal loadings: %f vs %f", lv["A1"], lv["B1"])
	}
}
