package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/flowsense/internal/domain/model"
	"github.com/okian/flowsense/pkg/metrics"
)

type userData struct {
	cycles  map[string]model.CycleRecord
	samples map[string]model.BiometricSample
	version uint64
}

// MemoryStore is an in-process Store. It is also the deterministic data
// source used in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*userData
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*userData)}
}

func (s *MemoryStore) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{
			cycles:  make(map[string]model.CycleRecord),
			samples: make(map[string]model.BiometricSample),
		}
		s.users[id] = u
	}
	return u
}

// CyclesInRange returns the user's cycles starting within [start, end].
func (s *MemoryStore) CyclesInRange(_ context.Context, userID string, start, end time.Time) ([]model.CycleRecord, error) {
	if err := checkQuery(userID, start, end); err != nil {
		return nil, err
	}
	began := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.CycleRecord, 0)
	if u, ok := s.users[userID]; ok {
		for _, c := range u.cycles {
			if !c.StartDate.Before(start) && !c.StartDate.After(end) {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	metrics.RecordStoreQueryLatency("cycles_in_range", msSince(began))
	return out, nil
}

// BiometricSamples returns the user's samples timestamped within
// [start, end], limited to types when any are given.
func (s *MemoryStore) BiometricSamples(_ context.Context, userID string, start, end time.Time, types ...model.BiometricType) ([]model.BiometricSample, error) {
	if err := checkQuery(userID, start, end); err != nil {
		return nil, err
	}
	began := time.Now()
	allowed := typeSet(types)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.BiometricSample, 0)
	if u, ok := s.users[userID]; ok {
		for _, smp := range u.samples {
			if smp.Timestamp.Before(start) || smp.Timestamp.After(end) {
				continue
			}
			if allowed != nil && !allowed[smp.Type] {
				continue
			}
			out = append(out, smp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	metrics.RecordStoreQueryLatency("biometric_samples", msSince(began))
	return out, nil
}

// Version returns the user's data version; 0 for unknown users.
func (s *MemoryStore) Version(_ context.Context, userID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	if u, ok := s.users[userID]; ok {
		return u.version, nil
	}
	return 0, nil
}

// SaveCycle upserts rec.
func (s *MemoryStore) SaveCycle(_ context.Context, rec model.CycleRecord) (model.CycleRecord, error) {
	rec, err := prepareCycle(rec)
	if err != nil {
		return model.CycleRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.CycleRecord{}, ErrClosed
	}
	u := s.user(rec.UserID)
	u.cycles[rec.ID] = rec
	u.version++
	metrics.UpdateStoreRecords("cycle", s.countLocked().Cycles)
	return rec, nil
}

// SaveSamples upserts samples for userID.
func (s *MemoryStore) SaveSamples(_ context.Context, userID string, samples []model.BiometricSample) ([]model.BiometricSample, error) {
	prepared, err := prepareSamples(userID, samples)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return prepared, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	u := s.user(userID)
	for _, smp := range prepared {
		u.samples[smp.ID] = smp
	}
	u.version++
	metrics.UpdateStoreRecords("sample", s.countLocked().Samples)
	return prepared, nil
}

// Users returns every user id with data, sorted.
func (s *MemoryStore) Users(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Counts returns the number of users, cycles and samples held.
func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(), nil
}

func (s *MemoryStore) countLocked() Counts {
	c := Counts{Users: len(s.users)}
	for _, u := range s.users {
		c.Cycles += len(u.cycles)
		c.Samples += len(u.samples)
	}
	return c
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func typeSet(types []model.BiometricType) map[model.BiometricType]bool {
	if len(types) == 0 {
		return nil
	}
	out := make(map[model.BiometricType]bool, len(types))
	for _, t := range types {
		out[t] = true
	}
	return out
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

var _ Store = (*MemoryStore)(nil)
