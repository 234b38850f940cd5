package idempotency

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	orderID     int // 0 while pending
	fingerprint string
	expires     time.Time
}

// MemoryStore is a process-local Store. Expired keys are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: map[string]entry{}, now: time.Now}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		switch {
		case e.fingerprint != fingerprint:
			return 0, false, ErrKeyReused
		case e.orderID == 0:
			return 0, false, ErrInFlight
		}
		return e.orderID, true, nil
	}
	s.entries[key] = entry{fingerprint: fingerprint, expires: now.Add(pendingTTL(s.ttl))}
	return 0, false, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, orderID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{orderID: orderID, fingerprint: fingerprint, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
