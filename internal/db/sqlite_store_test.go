package db

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/Psymetric/internal/irt"
	"github.com/soaringjerry/Psymetric/internal/services"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	store, err := NewSQLiteStore(conn)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func sampleRun(id string, at time.Time) *services.AnalysisResult {
	return &services.AnalysisResult{
		ID:        id,
		CreatedAt: at,
		Config: services.AnalysisConfig{
			Dichotomize: true,
			Family:      irt.TwoPL,
			Estimator:   services.EstimatorMML,
			D:           1.7,
			Seed:        1,
		},
		Model: &irt.FittedModel{
			Family:  irt.TwoPL,
			LogLik:  -480,
			NParams: 18,
			AIC:     996,
			Items: []irt.ItemParams{
				{Name: "DPQ010", Difficulty: []float64{-0.4}, Discrimination: 1.3},
			},
		},
		IRTLoadings: services.LoadingVector{"DPQ010": 0.61},
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	run := sampleRun("run1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if err := store.AddRun(run); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := store.GetRun("run1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("run not found after insert")
	}
	if got.Model.AIC != 996 || got.IRTLoadings["DPQ010"] != 0.61 {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if got.Config.Family != irt.TwoPL || !got.Config.Dichotomize {
		t.Fatalf("config lost: %+v", got.Config)
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	older := sampleRun("older", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleRun("newer", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	if err := store.AddRun(older); err != nil {
		t.Fatal(err)
	}
	if err := store.AddRun(newer); err != nil {
		t.Fatal(err)
	}
	runs, err := store.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "newer" {
		t.Fatalf("list order wrong: %+v", runs)
	}
}

func TestSQLiteStore_DeleteAndMissing(t *testing.T) {
	store := openTestStore(t)
	if got, err := store.GetRun("absent"); err != nil || got != nil {
		t.Fatalf("missing run should be nil, nil: %v %v", got, err)
	}
	run := sampleRun("gone", time.Now().UTC())
	if err := store.AddRun(run); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteRun("gone"); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetRun("gone"); got != nil {
		t.Fatal("run survived delete")
	}
}
