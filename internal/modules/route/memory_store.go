package route

import (
	"context"
	"sync"

	"shuttle/internal/types"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	routes map[types.ID]*Route
	stops  map[types.ID]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routes: make(map[types.ID]*Route),
		stops:  make(map[types.ID]string),
	}
}

func (s *MemoryStore) GetRoute(_ context.Context, id types.ID) (*Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.Stops = append([]Stop(nil), r.Stops...)
	return &cp, nil
}

func (s *MemoryStore) ListRoutes(_ context.Context) ([]*Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Route, 0, len(s.routes))
	for _, r := range s.routes {
		cp := *r
		cp.Stops = append([]Stop(nil), r.Stops...)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) CreateRoute(_ context.Context, r *Route) error {
	if r.Name == "" || r.BaseFare < 0 || r.RatePerKm < 0 {
		return ErrInvalidRoute
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = types.NewID()
	}
	cp := *r
	cp.Stops = append([]Stop(nil), r.Stops...)
	s.routes[r.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateStop(_ context.Context, name string) (types.ID, error) {
	if name == "" {
		return "", ErrInvalidRoute
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := types.NewID()
	s.stops[id] = name
	return id, nil
}

func (s *MemoryStore) AddStop(_ context.Context, routeID, stopID types.ID, positionM int64) (types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[routeID]
	if !ok {
		return "", ErrNotFound
	}
	name, ok := s.stops[stopID]
	if !ok {
		return "", ErrNotFound
	}
	if positionM < 0 {
		return "", ErrInvalidRoute
	}
	if n := len(r.Stops); n > 0 && positionM <= r.Stops[n-1].PositionM {
		return "", ErrInvalidRoute
	}
	id := types.NewID()
	r.Stops = append(r.Stops, Stop{ID: id, Name: name, PositionM: positionM})
	return id, nil
}
