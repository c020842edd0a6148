// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/squarecheck/squarecheck/pkg/errutil"
)

// SessionManager orchestrates session creation, validation with renewal,
// and invalidation. It is constructed once at process start and passed
// explicitly to its consumers.
type SessionManager struct {
	sessions SessionRepository
	users    UserRepository
	cookies  CookieConfig
	lifetime time.Duration
	renewAt  time.Duration
	logger   *slog.Logger
}

// Validation is the result of validating a session id.
// User and Session are nil when no valid session exists. Fresh is true when
// the session expiry was extended and the caller must re-issue the cookie.
type Validation struct {
	User    *User
	Session *Session
	Fresh   bool
}

// NewSessionManager creates a SessionManager with a no-op logger.
// Returns an error if any required dependency is nil.
func NewSessionManager(sessions SessionRepository, users UserRepository, cookies CookieConfig) (*SessionManager, error) {
	return NewSessionManagerWithLogger(sessions, users, cookies, slog.New(slog.DiscardHandler))
}

// NewSessionManagerWithLogger creates a SessionManager with the provided logger.
func NewSessionManagerWithLogger(sessions SessionRepository, users UserRepository, cookies CookieConfig, logger *slog.Logger) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &SessionManager{
		sessions: sessions,
		users:    users,
		cookies:  cookies,
		lifetime: SessionLifetime,
		renewAt:  SessionRenewalThreshold,
		logger:   logger,
	}, nil
}

// Create mints a session for the user and persists it.
func (m *SessionManager) Create(ctx context.Context, userID string) (*Session, error) {
	session, err := NewSession(userID, time.Now().Add(m.lifetime))
	if err != nil {
		return nil, err
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID).
			Wrap(err)
	}

	return session, nil
}

// Validate resolves a session id to its owning user, renewing the session
// when its remaining lifetime falls below the renewal threshold.
//
// Absent, expired, and malformed sessions all yield an empty Validation.
// Store failures on this path are logged and also yield an empty
// Validation: validation sits on the hot read path of every request and
// must not take the caller down with the store.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) *Validation {
	v := &Validation{}
	if sessionID == "" {
		return v
	}

	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(m.logger, "session lookup failed", err)
		}
		return v
	}

	now := time.Now()
	if session.ExpiredAt(now) {
		// Expired rows are garbage; collect eagerly, best effort.
		if err := m.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogError(m.logger, "expired session cleanup failed", err)
		}
		return v
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Orphaned session; the owning user is gone.
			if derr := m.sessions.Delete(ctx, session.ID); derr != nil && !errors.Is(derr, ErrNotFound) {
				errutil.LogError(m.logger, "orphan session cleanup failed", derr)
			}
		} else {
			errutil.LogError(m.logger, "session user lookup failed", err)
		}
		return v
	}

	if session.ExpiresAt.Sub(now) < m.renewAt {
		newExpiry := now.Add(m.lifetime)
		if err := m.sessions.UpdateExpiry(ctx, session.ID, newExpiry); err != nil {
			// The session stays valid on its old expiry; just skip the
			// cookie re-issue this time around.
			errutil.LogError(m.logger, "session renewal failed", err)
		} else {
			session.ExpiresAt = newExpiry
			v.Fresh = true
		}
	}

	v.User = user
	v.Session = session
	return v
}

// Invalidate deletes the session. Invalidating an absent session is not an
// error.
func (m *SessionManager) Invalidate(ctx context.Context, sessionID string) error {
	err := m.sessions.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_INVALIDATE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// InvalidateUserSessions deletes every session owned by the user.
func (m *SessionManager) InvalidateUserSessions(ctx context.Context, userID string) error {
	if err := m.sessions.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("SESSION_INVALIDATE_ALL_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// PurgeExpired removes expired sessions from the store and returns the
// count of deleted records. Intended to run periodically in the background.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

// SessionCookie builds the cookie descriptor for a session.
func (m *SessionManager) SessionCookie(session *Session) SessionCookie {
	return NewSessionCookie(session.ID, session.ExpiresAt, m.cookies)
}

// BlankSessionCookie builds a descriptor that clears the session cookie.
func (m *SessionManager) BlankSessionCookie() SessionCookie {
	return NewBlankSessionCookie(m.cookies)
}
