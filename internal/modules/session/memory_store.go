package session

import (
	"context"
	"sync"

	"shuttle/internal/types"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[types.ID]*Session
	shuttles map[types.ID]*Shuttle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[types.ID]*Session),
		shuttles: make(map[types.ID]*Shuttle),
	}
}

func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrNotFound
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *MemoryStore) ListRunning(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Session
	for _, sess := range s.sessions {
		if sess.Status == StatusRunning {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateShuttle(_ context.Context, sh *Shuttle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sh
	s.shuttles[sh.ID] = &cp
	return nil
}

func (s *MemoryStore) GetShuttle(_ context.Context, id types.ID) (*Shuttle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shuttles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

func (s *MemoryStore) ListShuttles(_ context.Context) ([]*Shuttle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Shuttle
	for _, sh := range s.shuttles {
		cp := *sh
		out = append(out, &cp)
	}
	return out, nil
}

// MemoryClaims is an in-process ShuttleClaims for tests and local runs.
type MemoryClaims struct {
	mu     sync.Mutex
	claims map[types.ID]types.ID
}

func NewMemoryClaims() *MemoryClaims {
	return &MemoryClaims{claims: make(map[types.ID]types.ID)}
}

func (c *MemoryClaims) Claim(_ context.Context, shuttleID, sessionID types.ID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.claims[shuttleID]; held {
		return false, nil
	}
	c.claims[shuttleID] = sessionID
	return true, nil
}

func (c *MemoryClaims) Release(_ context.Context, shuttleID types.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, shuttleID)
	return nil
}
