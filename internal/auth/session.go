// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Session token configuration. The session id doubles as the bearer token
// handed to the client, so it must be unguessable.
const (
	SessionIDBytes = 32 // 32 bytes = 64 hex chars

	// SessionLifetime is the absolute lifetime granted at creation and on
	// each renewal.
	SessionLifetime = 30 * 24 * time.Hour

	// SessionRenewalThreshold is the remaining-lifetime floor below which
	// validation extends the session and asks the caller to re-issue the
	// cookie. Above it, validation performs no store write.
	SessionRenewalThreshold = SessionLifetime / 2
)

// Session binds a bearer token to a user with an absolute expiry.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// NewSession creates a validated Session with a fresh random id.
func NewSession(userID string, expiresAt time.Time) (*Session, error) {
	if userID == "" {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user id cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, nil
}

// ExpiredAt reports whether the session is expired at the given time.
// A session is valid iff t is strictly before ExpiresAt; at the boundary
// it is already expired.
func (s *Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Expired reports whether the session is expired now.
func (s *Session) Expired() bool {
	return s.ExpiredAt(time.Now())
}

// GenerateSessionID creates a cryptographically random session id.
func GenerateSessionID() (string, error) {
	b := make([]byte, SessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_ID_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionIDBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// SessionRepository manages session persistence. Implementations must treat
// expired rows as present data; expiry policy lives in the SessionManager.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by id. Returns an error wrapping
	// ErrNotFound when no such session exists.
	Get(ctx context.Context, id string) (*Session, error)

	// UpdateExpiry extends a session's expiry. The expiry must never move
	// backwards; implementations keep the later of the stored and given
	// values. Returns an error wrapping ErrNotFound for absent sessions.
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// Delete removes a session by id. Returns an error wrapping
	// ErrNotFound for absent sessions.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes all sessions owned by a user.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired removes expired sessions and returns the count of
	// deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
