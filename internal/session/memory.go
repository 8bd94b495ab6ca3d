// internal/session/memory.go
package session

import (
	"context"
	"encoding/json"
	"sync"

	"rfp-workers/internal/models"
)

// MemoryStore is an in-process Store used in tests and single-node dev
// setups. Values are stored as JSON to match RedisStore round-trip behavior.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*models.SessionState, error) {
	s.mu.RLock()
	data, ok := s.data[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	var state models.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *MemoryStore) Put(_ context.Context, state *models.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data[state.SessionID] = data
	s.mu.Unlock()
	return nil
}
