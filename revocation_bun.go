package passwordless

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RevocationRecord persists one consumed sign-in token. Existence of a row
// means the token was used; rows are never updated and can be pruned once
// expires_at has passed.
type RevocationRecord struct {
	bun.BaseModel `bun:"table:sign_in_revocations,alias:rev"`

	Fingerprint string    `bun:"fingerprint,pk" json:"fingerprint"`
	ConsumedAt  time.Time `bun:"consumed_at,notnull" json:"consumed_at"`
	ExpiresAt   time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// BunRevocationStore implements RevocationStore on a relational table. The
// primary-key constraint on fingerprint makes the insert the atomic
// check-and-mark: concurrent consumers race on the same row and exactly one
// insert lands.
type BunRevocationStore struct {
	db  bun.IDB
	now func() time.Time
}

// NewBunRevocationStore creates a store backed by the given database.
func NewBunRevocationStore(db bun.IDB) *BunRevocationStore {
	return &BunRevocationStore{
		db:  db,
		now: time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (s *BunRevocationStore) WithClock(clock func() time.Time) *BunRevocationStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Consume inserts the consumption record, ignoring conflicts. Zero affected
// rows means another request already consumed the token.
func (s *BunRevocationStore) Consume(ctx context.Context, token string, ttl time.Duration) error {
	now := s.now()
	record := &RevocationRecord{
		Fingerprint: TokenFingerprint(token),
		ConsumedAt:  now,
		ExpiresAt:   now.Add(ttl),
	}

	// expired rows lose their claim on the fingerprint before we insert
	if _, err := s.db.NewDelete().
		Model((*RevocationRecord)(nil)).
		Where("fingerprint = ?", record.Fingerprint).
		Where("expires_at < ?", now).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to prune expired revocation record")
	}

	res, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (fingerprint) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to persist revocation record")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to read revocation insert result")
	}
	if affected == 0 {
		return ErrTokenRevoked.Clone()
	}
	return nil
}

// IsRevoked reports whether an unexpired consumption record exists.
func (s *BunRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*RevocationRecord)(nil)).
		Where("fingerprint = ?", TokenFingerprint(token)).
		Where("expires_at >= ?", s.now()).
		Exists(ctx)
	if err != nil && err != sql.ErrNoRows {
		return false, errors.Wrap(err, errors.CategoryOperation, "failed to query revocation record")
	}
	return exists, nil
}
