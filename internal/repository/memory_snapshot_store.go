package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"RatePull/internal/domain/models"
	domrepo "RatePull/internal/domain/repository"
)

// MemorySnapshotStore is an in-memory SnapshotStore used by tests and as a
// throwaway dev backend. The mutex makes each upsert an atomic full-tuple
// replace, matching the contract of the Postgres store.
type MemorySnapshotStore struct {
	mu   sync.RWMutex
	rows map[memKey]models.Snapshot
}

type memKey struct {
	bank string
	code string
	at   int64
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{rows: make(map[memKey]models.Snapshot)}
}

func (s *MemorySnapshotStore) Init(ctx context.Context) error { return nil }

func (s *MemorySnapshotStore) BulkUpsert(ctx context.Context, snaps []models.Snapshot) (models.UpsertResult, error) {
	var res models.UpsertResult
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		key := memKey{bank: snap.Bank, code: snap.Code, at: snap.ObservedAt.UnixNano()}
		if _, ok := s.rows[key]; ok {
			res.Updated++
			res.Matched++
		} else {
			res.Upserted++
		}
		snap.RecordedAt = now
		s.rows[key] = snap
	}
	return res, nil
}

func (s *MemorySnapshotStore) FindLatest(ctx context.Context, bank, code string) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Snapshot
	for key, row := range s.rows {
		if key.bank != bank || key.code != code {
			continue
		}
		if latest == nil || row.ObservedAt.After(latest.ObservedAt) {
			r := row
			latest = &r
		}
	}
	return latest, nil
}

func (s *MemorySnapshotStore) FindInWindow(ctx context.Context, bank, code string, from, to time.Time) ([]models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Snapshot
	for key, row := range s.rows {
		if key.bank != bank || key.code != code {
			continue
		}
		if row.ObservedAt.Before(from) || row.ObservedAt.After(to) {
			continue
		}
		out = append(out, row)
	}
	sortByObservedAt(out)
	return out, nil
}

func (s *MemorySnapshotStore) FindAllInWindow(ctx context.Context, code string, from, to time.Time) ([]models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Snapshot
	for key, row := range s.rows {
		if key.code != code {
			continue
		}
		if row.ObservedAt.Before(from) || row.ObservedAt.After(to) {
			continue
		}
		out = append(out, row)
	}
	sortByObservedAt(out)
	return out, nil
}

func (s *MemorySnapshotStore) AggregateMinMax(ctx context.Context, bank, code string, from, to time.Time, field models.Field) (*float64, *float64, error) {
	rows, err := s.FindInWindow(ctx, bank, code, from, to)
	if err != nil {
		return nil, nil, err
	}
	var min, max *float64
	for i := range rows {
		v := rows[i].Value(field)
		if v == nil {
			continue
		}
		if min == nil || *v < *min {
			min = v
		}
		if max == nil || *v > *max {
			max = v
		}
	}
	return min, max, nil
}

func (s *MemorySnapshotStore) LatestPerBank(ctx context.Context, code string) ([]models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]models.Snapshot)
	for key, row := range s.rows {
		if key.code != code {
			continue
		}
		if prev, ok := latest[key.bank]; !ok || row.ObservedAt.After(prev.ObservedAt) {
			latest[key.bank] = row
		}
	}
	return sortedValues(latest), nil
}

func (s *MemorySnapshotStore) LatestPerCode(ctx context.Context, bank string) ([]models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]models.Snapshot)
	for key, row := range s.rows {
		if key.bank != bank {
			continue
		}
		if prev, ok := latest[key.code]; !ok || row.ObservedAt.After(prev.ObservedAt) {
			latest[key.code] = row
		}
	}
	return sortedValues(latest), nil
}

func (s *MemorySnapshotStore) FindLatestAtOrBefore(ctx context.Context, bank, code string, cutoff time.Time) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Snapshot
	for key, row := range s.rows {
		if key.bank != bank || key.code != code || row.ObservedAt.After(cutoff) {
			continue
		}
		if latest == nil || row.ObservedAt.After(latest.ObservedAt) {
			r := row
			latest = &r
		}
	}
	return latest, nil
}

func (s *MemorySnapshotStore) FindLatestWithValue(ctx context.Context, bank, code string, from, to time.Time, field models.Field, value float64) (*models.Snapshot, error) {
	rows, err := s.FindInWindow(ctx, bank, code, from, to)
	if err != nil {
		return nil, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if v := rows[i].Value(field); v != nil && *v == value {
			return &rows[i], nil
		}
	}
	return nil, nil
}

func (s *MemorySnapshotStore) Health(ctx context.Context) error { return nil }

func (s *MemorySnapshotStore) Close() error { return nil }

func sortByObservedAt(rows []models.Snapshot) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ObservedAt.Before(rows[j].ObservedAt)
	})
}

func sortedValues(m map[string]models.Snapshot) []models.Snapshot {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

var _ domrepo.SnapshotStore = (*MemorySnapshotStore)(nil)
