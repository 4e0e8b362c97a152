package challenge

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	userID    int64
	expiresAt time.Time
}

// MemoryStore keeps challenges in process memory. Suitable only for a
// single service instance; entries do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (s *MemoryStore) Create(_ context.Context, userID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(time.Now())
	s.entries[token] = memoryEntry{
		userID:    userID,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token, nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return 0, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, token)
		return 0, ErrNotFound
	}
	return entry.userID, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

// sweepLocked drops expired entries so abandoned logins do not accumulate.
func (s *MemoryStore) sweepLocked(now time.Time) {
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
		}
	}
}
