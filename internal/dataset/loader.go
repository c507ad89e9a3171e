// Package dataset loads rectangular respondent-by-item files into a
// ResponseMatrix. Sources may be local paths or http(s) URLs; fixed-width
// and comma-separated layouts are supported. The respondent identifier
// column and any columns marked not part of the instrument are dropped
// before analysis.
package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/Psymetric/internal/services"
)

// ErrMalformed indicates the source file does not match the declared layout.
var ErrMalformed = errors.New("dataset: malformed source")

// Column describes one fixed-width field: a zero-based start offset and a
// width in bytes.
type Column struct {
	Name  string
	Start int
	Width int
}

// Layout declares how to slice a source into columns and which of them enter
// the analysis. IDColumn and Drop are removed after parsing; every remaining
// column must appear in Items.
type Layout struct {
	Columns  []Column
	IDColumn string
	Drop     []string
	Items    []services.Item
}

// Load reads a fixed-width source and returns the instrument's response
// matrix. Cells that are blank or non-numeric are Missing; values outside an
// item's range are preserved here and recoded to Missing by the pipeline's
// recode stage, so the raw codes remain inspectable.
func Load(ctx context.Context, source string, layout Layout) (*services.ResponseMatrix, error) {
	r, err := open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	keep, items, err := layout.keepIndexes()
	if err != nil {
		return nil, err
	}

	var rows [][]int
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		row := make([]int, len(keep))
		for i, ci := range keep {
			col := layout.Columns[ci]
			if col.Start+col.Width > len(text) {
				return nil, fmt.Errorf("%w: line %d shorter than column %s", ErrMalformed, line, col.Name)
			}
			row[i] = parseCell(text[col.Start : col.Start+col.Width])
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", source, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows in %s", ErrMalformed, source)
	}
	return &services.ResponseMatrix{Items: items, Rows: rows}, nil
}

// LoadCSV reads a comma-separated source whose header row names the columns.
func LoadCSV(ctx context.Context, source string, layout Layout) (*services.ResponseMatrix, error) {
	r, err := open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header in %s", ErrMalformed, source)
	}
	drop := map[string]bool{layout.IDColumn: true}
	for _, d := range layout.Drop {
		drop[d] = true
	}
	colFor := map[string]int{}
	for i, name := range header {
		colFor[strings.TrimSpace(name)] = i
	}
	for _, it := range layout.Items {
		if _, ok := colFor[it.Name]; !ok {
			return nil, fmt.Errorf("%w: column %s not in header of %s", ErrMalformed, it.Name, source)
		}
	}

	var rows [][]int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		row := make([]int, len(layout.Items))
		for i, it := range layout.Items {
			ci := colFor[it.Name]
			if ci >= len(rec) {
				row[i] = services.Missing
				continue
			}
			row[i] = parseCell(rec[ci])
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows in %s", ErrMalformed, source)
	}
	items := make([]services.Item, len(layout.Items))
	copy(items, layout.Items)
	return &services.ResponseMatrix{Items: items, Rows: rows}, nil
}

// keepIndexes resolves which declared columns survive the identifier and
// trailing-column drops, in declaration order, paired with their items.
func (l Layout) keepIndexes() ([]int, []services.Item, error) {
	drop := map[string]bool{l.IDColumn: true}
	for _, d := range l.Drop {
		drop[d] = true
	}
	itemFor := map[string]services.Item{}
	for _, it := range l.Items {
		itemFor[it.Name] = it
	}
	var keep []int
	var items []services.Item
	for i, col := range l.Columns {
		if drop[col.Name] {
			continue
		}
		it, ok := itemFor[col.Name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: column %s has no item definition", ErrMalformed, col.Name)
		}
		keep = append(keep, i)
		items = append(items, it)
	}
	if len(keep) == 0 {
		return nil, nil, fmt.Errorf("%w: no instrument columns left after drops", ErrMalformed)
	}
	return keep, items, nil
}

// parseCell maps a raw field to an ordinal code. Blank or non-numeric fields
// are Missing; this is a cell-local failure, never an abort.
func parseCell(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return services.Missing
	}
	// Transport files write integers as floats (e.g., "2.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return services.Missing
	}
	return int(f)
}

// open returns a reader over a local path or a remote URL.
func open(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("dataset: build request: %w", err)
		}
		client := &http.Client{Timeout: 60 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("dataset: fetch %s: %w", source, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("dataset: fetch %s: status %s", source, resp.Status)
		}
		return resp.Body, nil
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", source, err)
	}
	return f, nil
}
