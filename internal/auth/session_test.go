// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squarecheck/squarecheck/internal/auth"
	"github.com/squarecheck/squarecheck/pkg/errutil"
)

func TestNewSession(t *testing.T) {
	expiry := time.Now().Add(auth.SessionLifetime)

	t.Run("creates session with fresh id", func(t *testing.T) {
		session, err := auth.NewSession("user-1", expiry)
		require.NoError(t, err)
		assert.Equal(t, "user-1", session.UserID)
		assert.Equal(t, expiry, session.ExpiresAt)
		assert.Len(t, session.ID, auth.SessionIDBytes*2) // hex-encoded
	})

	t.Run("ids are unique", func(t *testing.T) {
		a, err := auth.NewSession("user-1", expiry)
		require.NoError(t, err)
		b, err := auth.NewSession("user-1", expiry)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects empty user id", func(t *testing.T) {
		session, err := auth.NewSession("", expiry)
		require.Error(t, err)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_USER")
	})

	t.Run("rejects zero expiry", func(t *testing.T) {
		session, err := auth.NewSession("user-1", time.Time{})
		require.Error(t, err)
		assert.Nil(t, session)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_EXPIRY")
	})
}

func TestSession_ExpiredAt(t *testing.T) {
	expiry := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	session := &auth.Session{ID: "s", UserID: "u", ExpiresAt: expiry}

	tests := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{name: "well before expiry", at: expiry.Add(-time.Hour), expired: false},
		{name: "one microsecond before expiry", at: expiry.Add(-time.Microsecond), expired: false},
		{name: "exactly at expiry", at: expiry, expired: true},
		{name: "one microsecond past expiry", at: expiry.Add(time.Microsecond), expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, session.ExpiredAt(tt.at))
		})
	}
}

func TestGenerateSessionID(t *testing.T) {
	id, err := auth.GenerateSessionID()
	require.NoError(t, err)
	assert.Len(t, id, 64) // 32 bytes hex-encoded

	other, err := auth.GenerateSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}
