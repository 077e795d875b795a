package state

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Load(ctx context.Context, id string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return errors.New("state: id required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.states[st.ID]; ok {
		current = existing.Version
	}
	if current != st.Version {
		return ErrStateConflict
	}
	next := st.Clone()
	next.Version = st.Version + 1
	s.states[st.ID] = next
	st.Version = next.Version
	return nil
}

// Len reports the number of stored conversations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
