package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/richinex/ixion/llm"
)

// MemoryStore is an in-memory CheckpointStore for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]llm.ChatMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]llm.ChatMessage)}
}

// Save stores a deep copy so later mutation by the caller cannot corrupt
// the checkpoint.
func (s *MemoryStore) Save(ctx context.Context, threadID string, messages []llm.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = llm.CloneMessages(messages)
	return nil
}

// Load returns a deep copy of the stored transcript.
func (s *MemoryStore) Load(ctx context.Context, threadID string) ([]llm.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return llm.CloneMessages(s.threads[threadID]), nil
}

// Delete removes the thread's checkpoint.
func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

// Exists reports whether the thread has a checkpoint.
func (s *MemoryStore) Exists(ctx context.Context, threadID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.threads[threadID]
	return ok, nil
}

// ListThreads returns thread IDs in sorted order.
func (s *MemoryStore) ListThreads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
