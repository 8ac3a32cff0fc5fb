package passwordless

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// RevocationStore is the at-most-once consumption guard for single-use
// tokens. Consume must be an atomic check-and-mark: when N requests race on
// the same token, exactly one call returns nil and the rest return
// ErrTokenRevoked. Records may be pruned once ttl has elapsed, since the
// token itself is expired by then.
type RevocationStore interface {
	Consume(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// TokenFingerprint derives the storage key for a token. Storing a digest
// instead of the token keeps signed material out of the revocation store.
func TokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemoryRevocationStore is a process-local RevocationStore, mostly useful in
// tests and single-instance deployments.
type MemoryRevocationStore struct {
	mu       sync.Mutex
	consumed map[string]time.Time
	now      func() time.Time
}

// NewMemoryRevocationStore creates an empty in-memory store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		consumed: map[string]time.Time{},
		now:      time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (s *MemoryRevocationStore) WithClock(clock func() time.Time) *MemoryRevocationStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Consume marks the token as used. Returns ErrTokenRevoked when it was
// already consumed and has not yet expired.
func (s *MemoryRevocationStore) Consume(ctx context.Context, token string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fp := TokenFingerprint(token)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt, exists := s.consumed[fp]; exists && now.Before(expiresAt) {
		return ErrTokenRevoked.Clone()
	}
	s.consumed[fp] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether the token has been consumed.
func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fp := TokenFingerprint(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, exists := s.consumed[fp]
	return exists && s.now().Before(expiresAt), nil
}
