package passwordless_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-passwordless"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    tenant_id TEXT,
    signed_in_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    deleted_at TIMESTAMP
);`

func setupUsersDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)
	_, err = bunDB.Exec(sqliteCreateRevocations)
	require.NoError(t, err)

	return bunDB
}

func seedUser(t *testing.T, db *bun.DB, email, tenant string) *passwordless.User {
	t.Helper()

	user := &passwordless.User{
		ID:       uuid.New(),
		Username: strings.Split(email, "@")[0],
		Email:    email,
		TenantID: tenant,
	}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

func newRequestFixture(t *testing.T, db *bun.DB) (*passwordless.RequestLinkHandler, *MockLinkSender, passwordless.TokenService) {
	t.Helper()

	repo := passwordless.NewRepositoryManager(db)
	service := newTestTokenService()
	resource := &passwordless.Resource{
		SubjectName:      "user",
		PrimaryKeyFields: []string{"id"},
		Lookup:           passwordless.NewUserLookup(db),
		Revocations:      repo.Revocations(),
	}

	sender := &MockLinkSender{}
	handler := passwordless.NewRequestLinkHandler(repo, service, resource, "magic_link").
		WithSender(sender).
		WithBaseURL("https://example.com/auth").
		WithLogger(testLogger{})

	return handler, sender, service
}

func TestRequestLinkHandler_Execute(t *testing.T) {
	db := setupUsersDB(t)
	user := seedUser(t, db, "pepe.rone@example.com", "acme")
	handler, sender, service := newRequestFixture(t, db)

	var capturedLink string
	sender.On("Send", mock.Anything, user.Email, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedLink = args.String(2)
		}).
		Return(nil).Once()

	resp, err := handler.Execute(context.Background(), passwordless.RequestLinkMessage{
		Email: user.Email,
	})
	require.NoError(t, err)
	require.True(t, resp.Delivered)
	sender.AssertExpectations(t)

	assert.True(t, strings.HasPrefix(capturedLink, "https://example.com/auth/user/magic_link?token="))
	assert.Equal(t, resp.Link, capturedLink)

	// the embedded token is a purpose-bound sign-in token for this user
	raw := strings.TrimPrefix(capturedLink, "https://example.com/auth/user/magic_link?token=")
	claims, err := service.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, passwordless.PurposeSignIn, claims.TokenPurpose())
	assert.Equal(t, "acme", claims.TokenTenant())

	identity, err := passwordless.DecodeSubject(claims.Subject(), []string{"id"})
	require.NoError(t, err)
	id, _ := identity.Get("id")
	assert.Equal(t, user.ID.String(), id)
}

func TestRequestLinkHandler_UnknownAddressIsNotAnError(t *testing.T) {
	db := setupUsersDB(t)
	handler, sender, _ := newRequestFixture(t, db)

	resp, err := handler.Execute(context.Background(), passwordless.RequestLinkMessage{
		Email: "nobody@example.com",
	})

	// same outward success as a delivered link, no account enumeration
	require.NoError(t, err)
	assert.False(t, resp.Delivered)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestLinkHandler_ValidatesEmail(t *testing.T) {
	db := setupUsersDB(t)
	handler, _, _ := newRequestFixture(t, db)

	tests := []string{"", "not-an-email", "missing@tld"}
	for _, email := range tests {
		t.Run("invalid "+email, func(t *testing.T) {
			_, err := handler.Execute(context.Background(), passwordless.RequestLinkMessage{Email: email})
			require.Error(t, err)
		})
	}
}

func TestRequestLinkHandler_ExplicitTenantWins(t *testing.T) {
	db := setupUsersDB(t)
	user := seedUser(t, db, "pepe.rone@example.com", "acme")
	handler, sender, service := newRequestFixture(t, db)

	var capturedLink string
	sender.On("Send", mock.Anything, user.Email, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedLink = args.String(2)
		}).
		Return(nil).Once()

	_, err := handler.Execute(context.Background(), passwordless.RequestLinkMessage{
		Email:  user.Email,
		Tenant: "override",
	})
	require.NoError(t, err)

	raw := strings.TrimPrefix(capturedLink, "https://example.com/auth/user/magic_link?token=")
	claims, err := service.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "override", claims.TokenTenant())
}

func TestRequestLinkHandler_SenderFailureSurfaces(t *testing.T) {
	db := setupUsersDB(t)
	user := seedUser(t, db, "pepe.rone@example.com", "")
	handler, sender, _ := newRequestFixture(t, db)

	sender.On("Send", mock.Anything, user.Email, mock.Anything).
		Return(errors.New("smtp unavailable")).Once()

	_, err := handler.Execute(context.Background(), passwordless.RequestLinkMessage{
		Email: user.Email,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to deliver sign-in link")
}
