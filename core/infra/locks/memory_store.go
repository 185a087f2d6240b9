package locks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type memoryLock struct {
	owner     string
	expiresAt time.Time
}

// MemoryStore is the in-process lock store used for single-process runs.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

// NewMemoryStore constructs an in-memory lock store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks: make(map[string]memoryLock),
		now:   time.Now,
	}
}

// Acquire takes the lock unless another owner holds it and the hold has not
// expired. Re-acquiring by the same owner extends the TTL.
func (s *MemoryStore) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error) {
	resource = strings.TrimSpace(resource)
	owner = strings.TrimSpace(owner)
	if resource == "" || owner == "" {
		return false, fmt.Errorf("resource and owner required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if held, ok := s.locks[resource]; ok && held.owner != owner && now.Before(held.expiresAt) {
		return false, nil
	}
	s.locks[resource] = memoryLock{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the lock if the caller owns it.
func (s *MemoryStore) Release(ctx context.Context, resource, owner string) error {
	resource = strings.TrimSpace(resource)
	owner = strings.TrimSpace(owner)
	if resource == "" || owner == "" {
		return fmt.Errorf("resource and owner required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.locks[resource]; ok && held.owner == owner {
		delete(s.locks, resource)
	}
	return nil
}
