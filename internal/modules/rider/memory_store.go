package rider

import (
	"context"
	"sort"
	"sync"

	"shuttle/internal/types"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	riders map[types.ID]*Rider
	byName map[string]types.ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		riders: make(map[types.ID]*Rider),
		byName: make(map[string]types.ID),
	}
}

func (s *MemoryStore) Create(_ context.Context, r *Rider) error {
	if r.Username == "" {
		return ErrInvalidRider
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[r.Username]; taken {
		return ErrUsernameTaken
	}
	cp := *r
	s.riders[r.ID] = &cp
	s.byName[r.Username] = r.ID
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.riders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.riders[id]
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Rider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Rider, 0, len(s.riders))
	for _, r := range s.riders {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
