// package repositories provides the persistence layer: token and stats stores
// backed by process memory or SQLite.
package repositories

import (
	"sync"

	"github.com/spotgram/spotgram/internal/models"
)

// MemoryTokenStore is the volatile [models.TokenStore]: a mutex-guarded map
// keyed by user identity. Contents are lost on process exit.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]models.TokenRecord
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]models.TokenRecord)}
}

// Get returns the record for identity, reporting absence via the boolean.
func (s *MemoryTokenStore) Get(identity string) (models.TokenRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.tokens[identity]
	return record, ok, nil
}

// Set replaces the record stored under identity.
func (s *MemoryTokenStore) Set(identity string, record models.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[identity] = record
	return nil
}
