// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/squarecheck/squarecheck/pkg/errutil"
)

// Service composes credential verification and session management into the
// login, logout, registration, and current-user operations consumed by the
// transport layer.
type Service struct {
	verifier *CredentialVerifier
	sessions *SessionManager
	users    UserRepository
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a Service with a no-op logger.
// Returns an error if any required dependency is nil.
func NewService(verifier *CredentialVerifier, sessions *SessionManager, users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(verifier, sessions, users, hasher, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a Service with the provided logger.
func NewServiceWithLogger(verifier *CredentialVerifier, sessions *SessionManager, users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if verifier == nil {
		return nil, oops.Errorf("credential verifier is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		verifier: verifier,
		sessions: sessions,
		users:    users,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// Login verifies credentials and mints a session, returning the session and
// the cookie descriptor the transport should set.
//
// When session creation fails (duplicate id or transient store error), the
// user's existing sessions are invalidated and creation is retried exactly
// once before the failure propagates. This bounds the retry and favors
// letting the user in over preserving their other sessions on that rare
// path.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, SessionCookie, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, SessionCookie{}, err
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		errutil.LogError(s.logger, "session creation failed, invalidating user sessions and retrying", err)

		if derr := s.sessions.InvalidateUserSessions(ctx, user.ID); derr != nil {
			return nil, SessionCookie{}, derr
		}
		session, err = s.sessions.Create(ctx, user.ID)
		if err != nil {
			return nil, SessionCookie{}, err
		}
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return session, s.sessions.SessionCookie(session), nil
}

// Logout invalidates the current session and returns a blank cookie
// descriptor instructing the client to clear the session cookie. Returns an
// unauthorized error when the request carries no valid session; nothing is
// mutated in that case.
func (s *Service) Logout(ctx context.Context, sessionID string) (SessionCookie, error) {
	v := s.sessions.Validate(ctx, sessionID)
	if v.Session == nil {
		return SessionCookie{}, oops.Code(CodeUnauthorized).Errorf("no active session")
	}

	if err := s.sessions.Invalidate(ctx, v.Session.ID); err != nil {
		return SessionCookie{}, err
	}

	s.logger.InfoContext(ctx, "user logged out", "user_id", v.Session.UserID)
	return s.sessions.BlankSessionCookie(), nil
}

// CurrentUser resolves the session id from the request cookie to a user.
// When the result is Fresh the caller must re-issue the session cookie;
// when it carries no session the caller should issue the blank cookie. The
// result may be memoized for the duration of a single request, never
// across requests.
func (s *Service) CurrentUser(ctx context.Context, sessionID string) *Validation {
	return s.sessions.Validate(ctx, sessionID)
}

// Cookie builds the cookie descriptor for a session, for transports that
// re-issue the cookie after a renewal.
func (s *Service) Cookie(session *Session) SessionCookie {
	return s.sessions.SessionCookie(session)
}

// BlankCookie builds a descriptor that clears the session cookie.
func (s *Service) BlankCookie() SessionCookie {
	return s.sessions.BlankSessionCookie()
}

// Register creates a new user from an email/password pair and immediately
// logs them in. A duplicate email surfaces as a generic conflict so the
// endpoint cannot be used to probe which emails are registered.
func (s *Service) Register(ctx context.Context, email, password string) (*Session, SessionCookie, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, SessionCookie{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, SessionCookie{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, SessionCookie{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return nil, SessionCookie{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, SessionCookie{}, oops.Code(CodeEmailTaken).Errorf("email already used")
		}
		return nil, SessionCookie{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, SessionCookie{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return session, s.sessions.SessionCookie(session), nil
}
