package trip

import (
	"context"
	"sync"

	"shuttle/internal/types"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	trips map[types.ID]*Trip
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[types.ID]*Trip)}
}

func (s *MemoryStore) Create(_ context.Context, t *Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.trips {
		if existing.RiderID == t.RiderID && existing.Status == StatusActive {
			return ErrTripConflict
		}
	}
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}

func (s *MemoryStore) ActiveByRider(_ context.Context, riderID types.ID) (*Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trips {
		if t.RiderID == riderID && t.Status == StatusActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ActiveOnRoute(_ context.Context, routeID types.ID) ([]*Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Trip
	for _, t := range s.trips {
		if t.RouteID == routeID && t.Status == StatusActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close(_ context.Context, t *Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.trips[t.ID]
	if !ok || existing.Status != StatusActive {
		return ErrTripConflict
	}
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}
