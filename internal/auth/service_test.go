// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/squarecheck/squarecheck/internal/auth"
	"github.com/squarecheck/squarecheck/internal/auth/mocks"
	"github.com/squarecheck/squarecheck/pkg/errutil"
)

// newTestService wires a Service over mock repositories with a real
// CredentialVerifier and SessionManager, so service tests exercise the full
// login/logout paths down to the store boundary.
func newTestService(t *testing.T) (*auth.Service, *mocks.MockSessionRepository, *mocks.MockUserRepository, *mocks.MockPasswordHasher) {
	t.Helper()
	sessions := mocks.NewMockSessionRepository(t)
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)

	verifier, err := auth.NewCredentialVerifier(users, hasher)
	require.NoError(t, err)
	manager, err := auth.NewSessionManager(sessions, users, auth.CookieConfig{})
	require.NoError(t, err)
	svc, err := auth.NewService(verifier, manager, users, hasher)
	require.NoError(t, err)

	return svc, sessions, users, hasher
}

func TestNewService_NilDependencies(t *testing.T) {
	sessions := mocks.NewMockSessionRepository(t)
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)

	verifier, err := auth.NewCredentialVerifier(users, hasher)
	require.NoError(t, err)
	manager, err := auth.NewSessionManager(sessions, users, auth.CookieConfig{})
	require.NoError(t, err)

	for name, build := range map[string]func() (*auth.Service, error){
		"nil verifier": func() (*auth.Service, error) { return auth.NewService(nil, manager, users, hasher) },
		"nil sessions": func() (*auth.Service, error) { return auth.NewService(verifier, nil, users, hasher) },
		"nil users":    func() (*auth.Service, error) { return auth.NewService(verifier, manager, nil, hasher) },
		"nil hasher":   func() (*auth.Service, error) { return auth.NewService(verifier, manager, users, nil) },
	} {
		t.Run(name, func(t *testing.T) {
			svc, err := build()
			require.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	storedHash := "$argon2id$v=19$m=19456,t=2,p=1$salt$hash"
	user := &auth.User{ID: "01JD7USER", Email: "lecturer@example.edu", PasswordHash: storedHash}

	t.Run("valid credentials mint a session and cookie", func(t *testing.T) {
		svc, sessions, users, hasher := newTestService(t)

		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "password123", storedHash).Return(true, nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		session, cookie, err := svc.Login(ctx, user.Email, "password123")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, user.ID, session.UserID)
		assert.Equal(t, session.ID, cookie.Value)
		assert.Equal(t, session.ExpiresAt, cookie.ExpiresAt)
	})

	t.Run("invalid credentials yield no session", func(t *testing.T) {
		svc, _, users, hasher := newTestService(t)

		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "wrongpassword", storedHash).Return(false, nil)

		session, cookie, err := svc.Login(ctx, user.Email, "wrongpassword")
		require.Error(t, err)
		assert.Nil(t, session)
		assert.Empty(t, cookie.Value)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("create failure invalidates user sessions and retries once", func(t *testing.T) {
		svc, sessions, users, hasher := newTestService(t)

		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "password123", storedHash).Return(true, nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Return(errors.New("duplicate key")).Once()
		sessions.On("DeleteByUser", ctx, user.ID).Return(nil).Once()
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Return(nil).Once()

		session, _, err := svc.Login(ctx, user.Email, "password123")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, user.ID, session.UserID)
	})

	t.Run("second create failure propagates without further retries", func(t *testing.T) {
		svc, sessions, users, hasher := newTestService(t)

		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "password123", storedHash).Return(true, nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Return(errors.New("store down")).Twice()
		sessions.On("DeleteByUser", ctx, user.ID).Return(nil).Once()

		session, _, err := svc.Login(ctx, user.Email, "password123")
		require.Error(t, err)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, "SESSION_CREATE_FAILED")
	})

	t.Run("invalidation failure during retry propagates", func(t *testing.T) {
		svc, sessions, users, hasher := newTestService(t)

		users.On("GetByEmail", ctx, user.Email).Return(user, nil)
		hasher.On("Verify", "password123", storedHash).Return(true, nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).
			Return(errors.New("duplicate key")).Once()
		sessions.On("DeleteByUser", ctx, user.ID).Return(errors.New("store down")).Once()

		session, _, err := svc.Login(ctx, user.Email, "password123")
		require.Error(t, err)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, "SESSION_INVALIDATE_ALL_FAILED")
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: "01JD7USER", Email: "lecturer@example.edu"}

	t.Run("invalidates the session and clears the cookie", func(t *testing.T) {
		svc, sessions, users, _ := newTestService(t)

		session := &auth.Session{
			ID:        "abc123",
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(auth.SessionLifetime),
		}
		sessions.On("Get", ctx, "abc123").Return(session, nil)
		users.On("GetByID", ctx, user.ID).Return(user, nil)
		sessions.On("Delete", ctx, "abc123").Return(nil)

		cookie, err := svc.Logout(ctx, "abc123")
		require.NoError(t, err)
		assert.True(t, cookie.Blank())
	})

	t.Run("no session is unauthorized and mutates nothing", func(t *testing.T) {
		svc, sessions, _, _ := newTestService(t)

		sessions.On("Get", ctx, "gone").Return(nil, auth.ErrNotFound)

		cookie, err := svc.Logout(ctx, "gone")
		require.Error(t, err)
		assert.Empty(t, cookie.Name)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("missing cookie is unauthorized", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)

		_, err := svc.Logout(ctx, "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("expired session is unauthorized", func(t *testing.T) {
		svc, sessions, _, _ := newTestService(t)

		session := &auth.Session{
			ID:        "stale",
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		sessions.On("Get", ctx, "stale").Return(session, nil)
		sessions.On("Delete", ctx, "stale").Return(nil)

		_, err := svc.Logout(ctx, "stale")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})
}

func TestService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: "01JD7USER", Email: "lecturer@example.edu"}

	t.Run("resolves a valid session", func(t *testing.T) {
		svc, sessions, users, _ := newTestService(t)

		session := &auth.Session{
			ID:        "abc123",
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(auth.SessionLifetime),
		}
		sessions.On("Get", ctx, "abc123").Return(session, nil)
		users.On("GetByID", ctx, user.ID).Return(user, nil)

		v := svc.CurrentUser(ctx, "abc123")
		require.NotNil(t, v.User)
		assert.Equal(t, user.ID, v.User.ID)
	})

	t.Run("no session yields empty validation", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)

		v := svc.CurrentUser(ctx, "")
		assert.Nil(t, v.User)
		assert.Nil(t, v.Session)
	})
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the user and logs them in", func(t *testing.T) {
		svc, sessions, users, hasher := newTestService(t)

		hasher.On("Hash", "password123").Return("$argon2id$...", nil)
		var created *auth.User
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*auth.User)
			}).
			Return(nil)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		session, cookie, err := svc.Register(ctx, "new@example.edu", "password123")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "new@example.edu", created.Email)
		assert.Equal(t, "$argon2id$...", created.PasswordHash)
		assert.Equal(t, created.ID, session.UserID)
		assert.Equal(t, session.ID, cookie.Value)
	})

	t.Run("duplicate email surfaces as a conflict", func(t *testing.T) {
		svc, _, users, hasher := newTestService(t)

		hasher.On("Hash", "password123").Return("$argon2id$...", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(auth.ErrEmailTaken)

		session, _, err := svc.Register(ctx, "taken@example.edu", "password123")
		require.Error(t, err)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, auth.CodeEmailTaken)
	})

	t.Run("invalid email is rejected before hashing", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)

		_, _, err := svc.Register(ctx, "not-an-email", "password123")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("short password is rejected before hashing", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)

		_, _, err := svc.Register(ctx, "new@example.edu", "short")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("hash failure is wrapped", func(t *testing.T) {
		svc, _, _, hasher := newTestService(t)

		hasher.On("Hash", "password123").Return("", errors.New("out of memory"))

		_, _, err := svc.Register(ctx, "new@example.edu", "password123")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
	})

	t.Run("insert failure other than duplicate is wrapped", func(t *testing.T) {
		svc, _, users, hasher := newTestService(t)

		hasher.On("Hash", "password123").Return("$argon2id$...", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(errors.New("connection refused"))

		_, _, err := svc.Register(ctx, "new@example.edu", "password123")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
	})
}
