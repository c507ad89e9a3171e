package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/Psymetric/internal/cfa"
	"github.com/soaringjerry/Psymetric/internal/irt"
)

// Estimator selects how loadings are produced. MML fits the logistic IRT
// family and converts discriminations; WLSMV additionally fits the ordinal
// one-factor CFA and compares the two loading vectors.
type Estimator string

const (
	EstimatorMML   Estimator = "MML"
	EstimatorWLSMV Estimator = "WLSMV"
)

// AnalysisConfig is the pipeline's recognized configuration.
type AnalysisConfig struct {
	Dichotomize  bool       `json:"dichotomize"`
	Family       irt.Family `json:"model_family"`
	Estimator    Estimator  `json:"estimator"`
	D            float64    `json:"scaling_constant"`
	Seed         int64      `json:"random_seed"`
	Replications int        `json:"replications,omitempty"`
	GridLo       float64    `json:"grid_lo,omitempty"`
	GridHi       float64    `json:"grid_hi,omitempty"`
	GridStep     float64    `json:"grid_step,omitempty"`
}

// AnalysisResult is everything one pipeline run produces. The fitted model is
// retained so curve coordinates can be served on demand.
type AnalysisResult struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	Config      AnalysisConfig    `json:"config"`
	Model       *irt.FittedModel  `json:"model"`
	IRTLoadings LoadingVector     `json:"irt_loadings"`
	CFALoadings LoadingVector     `json:"cfa_loadings,omitempty"`
	Comparison  *ComparisonTable  `json:"comparison,omitempty"`
	Parallel    *ParallelAnalysis `json:"parallel,omitempty"`
}

// AnalysisService runs the pipeline: recode, fit, convert, compare. Each
// stage is a pure function; the service wires them in order and translates
// stage errors into ServiceError codes. Runs are deterministic given the same
// matrix and config (modulo optimizer tolerance).
type AnalysisService struct {
	now   func() time.Time
	idGen func() string
}

func NewAnalysisService() *AnalysisService {
	return &AnalysisService{
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
	}
}

// Run executes the pipeline on a raw response matrix. The matrix is never
// mutated; each stage hands a fresh value to the next.
func (s *AnalysisService) Run(m *ResponseMatrix, cfg AnalysisConfig) (*AnalysisResult, error) {
	if m == nil || m.NRows() == 0 || m.NItems() == 0 {
		return nil, NewInvalidError("empty response matrix")
	}
	// Loadings are keyed by item name; a duplicate would silently collapse.
	for j, it := range m.Items {
		if m.ItemIndex(it.Name) != j {
			return nil, NewInvalidError(fmt.Sprintf("duplicate item name %q", it.Name))
		}
	}
	if cfg.D <= 0 {
		return nil, NewInvalidError("scaling constant D must be supplied and positive")
	}
	switch cfg.Estimator {
	case EstimatorMML, EstimatorWLSMV:
	case "":
		cfg.Estimator = EstimatorMML
	default:
		return nil, NewInvalidError(fmt.Sprintf("unknown estimator %q", cfg.Estimator))
	}

	recoded := RecodeInRange(m)
	for j, it := range recoded.Items {
		usable := false
		for _, v := range recoded.Column(j) {
			if v != Missing {
				usable = true
				break
			}
		}
		if !usable {
			return nil, NewInvalidError(fmt.Sprintf("item %s has no in-range responses", it.Name))
		}
	}
	analyzed := recoded
	if cfg.Dichotomize {
		analyzed = Dichotomize(recoded)
	}

	model, err := s.fit(analyzed, cfg.Family)
	if err != nil {
		return nil, err
	}

	irtLoadings := LoadingsFromModel(model, cfg.D)

	res := &AnalysisResult{
		ID:          s.idGen(),
		CreatedAt:   s.now(),
		Config:      cfg,
		Model:       model,
		IRTLoadings: irtLoadings,
	}

	if cfg.Estimator == EstimatorWLSMV {
		names := make([]string, analyzed.NItems())
		maxCat := make([]int, analyzed.NItems())
		for j, it := range analyzed.Items {
			names[j] = it.Name
			maxCat[j] = it.MaxCategory
		}
		onef, err := cfa.FitOneFactor(names, maxCat, analyzed.Rows)
		if err != nil {
			if errors.Is(err, cfa.ErrNoConvergence) {
				return nil, NewConvergenceError(fmt.Sprintf("ordinal CFA: %v", err))
			}
			return nil, NewInvalidError(fmt.Sprintf("ordinal CFA: %v", err))
		}
		loadings := LoadingVector{}
		for j, name := range onef.Items {
			loadings[name] = onef.Loadings[j]
		}
		res.CFALoadings = loadings
		table, err := Compare(loadings, irtLoadings)
		if err != nil {
			return nil, err
		}
		res.Comparison = table
	}

	if cfg.Replications > 0 {
		pa, err := RunParallelAnalysis(analyzed, cfg.Replications, cfg.Seed)
		if err != nil {
			return nil, err
		}
		res.Parallel = pa
	}

	return res, nil
}

// Curves returns a result's item characteristic and information coordinates
// over the configured trait grid ([-6, 6] at 0.1 unless overridden).
func (s *AnalysisService) Curves(res *AnalysisResult, item string) (*irt.ItemCurves, []irt.CurvePoint, error) {
	lo, hi, step := res.Config.GridLo, res.Config.GridHi, res.Config.GridStep
	if step <= 0 {
		lo, hi, step = -6, 6, 0.1
	}
	grid := irt.Grid(lo, hi, step)
	icc, err := irt.ICC(res.Model, item, grid)
	if err != nil {
		return nil, nil, NewNotFoundError(err.Error())
	}
	info, err := irt.Information(res.Model, item, grid)
	if err != nil {
		return nil, nil, NewNotFoundError(err.Error())
	}
	return icc, info, nil
}

// fit adapts the matrix to the fitter's input type and maps its sentinel
// errors onto service error codes with the family in the message.
func (s *AnalysisService) fit(m *ResponseMatrix, family irt.Family) (*irt.FittedModel, error) {
	im := &irt.Matrix{
		Names:  make([]string, m.NItems()),
		MaxCat: make([]int, m.NItems()),
		Rows:   m.Rows,
	}
	for j, it := range m.Items {
		im.Names[j] = it.Name
		im.MaxCat[j] = it.MaxCategory
	}
	model, err := irt.Fit(im, family, irt.Options{})
	if err != nil {
		switch {
		case errors.Is(err, irt.ErrNoConvergence):
			return nil, NewConvergenceError(err.Error())
		case errors.Is(err, irt.ErrBadCategory):
			return nil, NewInvalidRangeError(err.Error())
		default:
			return nil, NewInvalidError(err.Error())
		}
	}
	return model, nil
}

// LoadingsFromModel converts a fitted model's discriminations to standardized
// loadings. Shared-discrimination families map every item through the shared
// value, so their loadings are equal by construction.
func LoadingsFromModel(fm *irt.FittedModel, d float64) LoadingVector {
	out := LoadingVector{}
	for _, it := range fm.Items {
		out[it.Name] = ToLoading(it.Discrimination, d)
	}
	return out
}
