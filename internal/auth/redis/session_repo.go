// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

// Package redis provides a Redis-backed implementation of the auth session
// repository. Records carry their own TTL so Redis expires sessions without
// a background sweeper.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/squarecheck/squarecheck/internal/auth"
)

const (
	sessionKeyPrefix   = "session:"
	userIndexKeyPrefix = "user_sessions:"
)

// sessionRecord is the JSON shape stored under each session key.
type sessionRecord struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRepository implements auth.SessionRepository using Redis.
//
// Each session lives under session:<id> with a TTL matching its expiry, and
// a per-user set under user_sessions:<user_id> indexes the ids for
// DeleteByUser. Index entries for expired sessions are pruned lazily.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(client *redis.Client) (*SessionRepository, error) {
	if client == nil {
		return nil, oops.Errorf("redis client is required")
	}
	return &SessionRepository{client: client}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userIndexKey(userID string) string {
	return userIndexKeyPrefix + userID
}

// Create stores a new session with a TTL matching its remaining lifetime.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return oops.Code("SESSION_CREATE_FAILED").
			Errorf("session is already expired")
	}

	payload, err := json.Marshal(sessionRecord{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "marshal session record").
			Wrap(err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
	pipe.SAdd(ctx, userIndexKey(session.UserID), session.ID)
	// The index outlives its members slightly so lazy pruning can find them.
	pipe.Expire(ctx, userIndexKey(session.UserID), ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*auth.Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "unmarshal session record").
			Wrap(err)
	}

	return &auth.Session{
		ID:        id,
		UserID:    record.UserID,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// UpdateExpiry moves the session expiry forward. An expiry earlier than the
// stored one is ignored, so concurrent renewals cannot shorten a session.
func (r *SessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !expiresAt.After(session.ExpiresAt) {
		return nil
	}

	payload, err := json.Marshal(sessionRecord{
		UserID:    session.UserID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return oops.Code("SESSION_UPDATE_EXPIRY_FAILED").
			With("operation", "marshal session record").
			Wrap(err)
	}

	ttl := time.Until(expiresAt)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(id), payload, ttl)
	pipe.Expire(ctx, userIndexKey(session.UserID), ttl+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return oops.Code("SESSION_UPDATE_EXPIRY_FAILED").
			With("operation", "update expires_at").
			Wrap(err)
	}
	return nil
}

// Delete removes a session by id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, userIndexKey(session.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "read user session index").
			With("user_id", userID).
			Wrap(err)
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, userIndexKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired prunes index entries whose session keys have been expired
// away by Redis and returns the count. The session records themselves are
// reclaimed by Redis TTLs, not here.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var pruned int64

	iter := r.client.Scan(ctx, 0, userIndexKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()

		ids, err := r.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return pruned, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
				With("operation", "read user session index").
				Wrap(err)
		}

		for _, id := range ids {
			exists, err := r.client.Exists(ctx, sessionKey(id)).Result()
			if err != nil {
				return pruned, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
					With("operation", "check session key").
					Wrap(err)
			}
			if exists == 0 {
				if err := r.client.SRem(ctx, indexKey, id).Err(); err != nil {
					return pruned, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
						With("operation", "prune index entry").
						Wrap(err)
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "scan user session indexes").
			Wrap(err)
	}

	return pruned, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
