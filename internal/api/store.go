package api

import (
	"sort"
	"sync"

	"github.com/soaringjerry/Psymetric/internal/services"
)

// Store persists analysis runs. Implementations: the in-memory store below
// (tests, dev) and the SQLite store in internal/db.
type Store interface {
	AddRun(res *services.AnalysisResult) error
	GetRun(id string) (*services.AnalysisResult, error)
	ListRuns() ([]*services.AnalysisResult, error)
	DeleteRun(id string) error
}

type memoryStore struct {
	mu   sync.RWMutex
	runs map[string]*services.AnalysisResult
}

// NewMemoryStore returns a process-local Store.
func NewMemoryStore() Store {
	return &memoryStore{runs: map[string]*services.AnalysisResult{}}
}

func (s *memoryStore) AddRun(res *services.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[res.ID] = res
	return nil
}

func (s *memoryStore) GetRun(id string) (*services.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[id], nil
}

func (s *memoryStore) ListRuns() ([]*services.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.AnalysisResult, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	// newest first, id as tiebreaker for stable output
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}
