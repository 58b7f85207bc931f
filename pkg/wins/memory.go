package wins

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps wins in process; used in tests and local runs
type MemoryStore struct {
	mu   sync.RWMutex
	wins []Win
}

// NewMemoryStore creates a store holding wins
func NewMemoryStore(wins ...Win) *MemoryStore {
	s := &MemoryStore{}
	s.Add(wins...)
	return s
}

// Add inserts wins keeping (CreatedAt, ID) order. CreatedAt is truncated
// to microseconds as Postgres stores it.
func (s *MemoryStore) Add(wins ...Win) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range wins {
		w.CreatedAt = w.CreatedAt.Truncate(time.Microsecond)
		s.wins = append(s.wins, w)
	}
	sort.Slice(s.wins, func(i, j int) bool {
		return CursorAfter(s.wins[i]).Before(s.wins[j])
	})
}

func (s *MemoryStore) ListAfter(_ context.Context, cursor *Cursor, limit int) ([]Win, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Win{}
	for _, w := range s.wins {
		if cursor != nil && !cursor.Before(w) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *MemoryStore) ListByMatchIDs(_ context.Context, matchIDs []int64) ([]Win, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]bool, len(matchIDs))
	for _, id := range matchIDs {
		wanted[id] = true
	}

	out := []Win{}
	for _, w := range s.wins {
		if wanted[w.MatchID] {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByFinancialYear(_ context.Context, fy int) ([]Win, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end := FinancialYearBounds(fy)
	out := []Win{}
	for _, w := range s.wins {
		if !w.Date.Before(start) && w.Date.Before(end) {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
