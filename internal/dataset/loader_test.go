package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/soaringjerry/Psymetric/internal/services"
)

func fixedLayout() Layout {
	return Layout{
		Columns: []Column{
			{Name: "SEQN", Start: 0, Width: 5},
			{Name: "Q1", Start: 5, Width: 3},
			{Name: "Q2", Start: 8, Width: 3},
			{Name: "EXTRA", Start: 11, Width: 3},
		},
		IDColumn: "SEQN",
		Drop:     []string{"EXTRA"},
		Items: []services.Item{
			{Name: "Q1", MaxCategory: 3},
			{Name: "Q2", MaxCategory: 3},
		},
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FixedWidth(t *testing.T) {
	path := writeTemp(t, ""+
		"10001  2  0  1\n"+
		"10002  .  3  0\n"+
		"10003 9.0  1  1\n")
	m, err := Load(context.Background(), path, fixedLayout())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.NItems() != 2 {
		t.Fatalf("identifier and trailing columns must be dropped, got %d items", m.NItems())
	}
	if m.NRows() != 3 {
		t.Fatalf("want 3 rows, got %d", m.NRows())
	}
	if m.Rows[0][0] != 2 || m.Rows[0][1] != 0 {
		t.Fatalf("row 0 parsed wrong: %v", m.Rows[0])
	}
	// "." is a non-numeric cell: missing, not an abort.
	if m.Rows[1][0] != services.Missing {
		t.Fatalf("unparsable cell should be missing, got %d", m.Rows[1][0])
	}
	// Transport floats parse as their integer value; raw sentinel codes stay
	// raw here so the recode stage can see them.
	if m.Rows[2][0] != 9 {
		t.Fatalf("raw sentinel should pass through the loader, got %d", m.Rows[2][0])
	}
}

func TestLoad_ShortLine(t *testing.T) {
	path := writeTemp(t, "10001  2\n")
	_, err := Load(context.Background(), path, fixedLayout())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("short line: got %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeTemp(t, "\n\n")
	if _, err := Load(context.Background(), path, fixedLayout()); !errors.Is(err, ErrMalformed) {
		t.Fatal("empty source must be malformed")
	}
}

func TestLoad_ScreenerFixedWidth(t *testing.T) {
	path := writeTemp(t, ""+
		"100001 0 1 2 3 0 1 2 3 0 1\n"+
		"100002    1 1 1 1 1 1 1 1 2\n")
	m, err := Load(context.Background(), path, ScreenerFixedWidthLayout())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.NItems() != 9 {
		t.Fatalf("screener has 9 items after drops, got %d", m.NItems())
	}
	if m.Rows[0][3] != 3 || m.Rows[0][8] != 0 {
		t.Fatalf("row 0 parsed wrong: %v", m.Rows[0])
	}
	if m.Rows[1][0] != services.Missing {
		t.Fatalf("blank cell should be missing, got %d", m.Rows[1][0])
	}
	for _, it := range m.Items {
		if it.Name == "SEQN" || it.Name == "DPQ100" {
			t.Fatalf("column %s should have been dropped", it.Name)
		}
	}
}

func TestLoadCSV_Remote(t *testing.T) {
	csvBody := "SEQN,DPQ010,DPQ020,DPQ030,DPQ040,DPQ050,DPQ060,DPQ070,DPQ080,DPQ090,DPQ100\n" +
		"1,0,1,2,3,0,1,2,3,0,1\n" +
		"2,3,3,3,3,3,3,3,3,3,2\n" +
		"3,,1,9,0,0,0,0,0,0,0\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	m, err := LoadCSV(context.Background(), srv.URL, ScreenerCSVLayout())
	if err != nil {
		t.Fatalf("remote load: %v", err)
	}
	if m.NItems() != 9 {
		t.Fatalf("screener has 9 items after drops, got %d", m.NItems())
	}
	if m.NRows() != 3 {
		t.Fatalf("want 3 rows, got %d", m.NRows())
	}
	if m.Rows[2][0] != services.Missing {
		t.Fatalf("blank cell should be missing, got %d", m.Rows[2][0])
	}
	for _, it := range m.Items {
		if it.Name == "SEQN" || it.Name == "DPQ100" {
			t.Fatalf("column %s should have been dropped", it.Name)
		}
	}
}

func TestLoadCSV_MissingColumn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("SEQN,DPQ010\n1,2\n"))
	}))
	defer srv.Close()
	if _, err := LoadCSV(context.Background(), srv.URL, ScreenerCSVLayout()); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing instrument column: got %v", err)
	}
}

func TestLoad_UnreachableSource(t *testing.T) {
	if _, err := Load(context.Background(), "/nonexistent/file.dat", fixedLayout()); err == nil {
		t.Fatal("unreachable source must fail")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	if _, err := LoadCSV(context.Background(), srv.URL, ScreenerCSVLayout()); err == nil {
		t.Fatal("http error status must fail")
	}
}
