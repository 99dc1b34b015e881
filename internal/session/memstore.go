package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"servicedesk/internal/desk"
)

// MemoryStore is a lightweight desk.Store for tests. It deep-copies state on
// Save and Load so callers cannot alias the stored snapshot.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]byte
	locks   *keyedMutex
}

// NewMemoryStore constructs an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string][]byte),
		locks:   newKeyedMutex(),
	}
}

func (s *MemoryStore) Load(_ context.Context, threadID string) (*desk.ConversationState, error) {
	s.mu.RLock()
	data, ok := s.threads[threadID]
	s.mu.RUnlock()
	if !ok {
		return nil, desk.ErrThreadNotFound
	}
	var state desk.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *MemoryStore) Save(_ context.Context, state *desk.ConversationState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.threads[state.ThreadID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Acquire(threadID string) func() {
	return s.locks.Acquire(threadID)
}
