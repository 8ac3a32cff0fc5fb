package passwordless

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisRevocationStore implements RevocationStore on top of redis. SET NX
// gives us the atomic check-and-mark, and the key TTL prunes records once
// the token has expired on its own.
type RedisRevocationStore struct {
	client redis.UniversalClient
	prefix string
	logger Logger
}

// NewRedisRevocationStore creates a store using the given client. prefix
// namespaces keys so multiple resources can share one redis instance.
func NewRedisRevocationStore(client redis.UniversalClient, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "pwdless:revoked"
	}
	return &RedisRevocationStore{
		client: client,
		prefix: prefix,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used for store failures.
func (s *RedisRevocationStore) WithLogger(logger Logger) *RedisRevocationStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *RedisRevocationStore) key(fingerprint string) string {
	return s.prefix + ":" + fingerprint
}

// Consume marks the token as used via SET NX. A zero or negative ttl keeps
// the record indefinitely.
func (s *RedisRevocationStore) Consume(ctx context.Context, token string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	ok, err := s.client.SetNX(ctx, s.key(TokenFingerprint(token)), time.Now().Unix(), ttl).Result()
	if err != nil {
		s.logger.Error("redis revocation consume failed", "error", err)
		return errors.Wrap(err, errors.CategoryOperation, "revocation store unavailable")
	}
	if !ok {
		return ErrTokenRevoked.Clone()
	}
	return nil
}

// IsRevoked reports whether the token has been consumed.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(TokenFingerprint(token))).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryOperation, "revocation store unavailable")
	}
	return n > 0, nil
}
