package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore is the deny-list of token ids. Entries only need to
// outlive the token they revoke.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationStore keeps revoked ids in process memory
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty deny-list
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke adds the token id until expiresAt
func (m *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[tokenID] = expiresAt
	m.sweepLocked()
	return nil
}

// IsRevoked reports whether the id is on the deny-list
func (m *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[tokenID]
	if !ok {
		return false, nil
	}

	if !exp.IsZero() && !m.now().Before(exp) {
		delete(m.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// Len returns the number of tracked ids
func (m *MemoryRevocationStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryRevocationStore) sweepLocked() {
	now := m.now()
	for id, exp := range m.entries {
		if !exp.IsZero() && !now.Before(exp) {
			delete(m.entries, id)
		}
	}
}
