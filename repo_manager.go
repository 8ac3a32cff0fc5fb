package passwordless

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Revocations() RevocationStore
}

type mngr struct {
	db          *bun.DB
	users       Users
	revocations RevocationStore
}

var _ RepositoryManager = (*mngr)(nil)

// NewRepositoryManager wires the default bun-backed repositories. Pass a
// different RevocationStore (e.g. redis) via WithRevocationStore when the
// relational table is not the consumption boundary.
func NewRepositoryManager(db *bun.DB) *mngr {
	return &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		revocations: NewBunRevocationStore(db),
	}
}

// WithRevocationStore overrides the revocation store exposed by the manager.
func (m *mngr) WithRevocationStore(store RevocationStore) *mngr {
	if store != nil {
		m.revocations = store
	}
	return m
}

func (m *mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.revocations == nil {
		return errors.New("revocation store should be initialized")
	}

	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *mngr) Users() Users {
	return m.users
}

func (m *mngr) Revocations() RevocationStore {
	return m.revocations
}
