// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

//go:build !integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squarecheck/squarecheck/internal/auth"
)

func TestUserRepository_Create(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &auth.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Name:         "Alice",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   bool
		errIs     error
		errMsg    string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, user.Email, user.PasswordHash, user.Name, user.Image, user.IsAdmin, user.CreatedAt, user.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			wantErr: false,
		},
		{
			name: "unique violation surfaces as email taken",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, user.Email, user.PasswordHash, user.Name, user.Image, user.IsAdmin, user.CreatedAt, user.UpdatedAt).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
			},
			wantErr: true,
			errIs:   auth.ErrEmailTaken,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, user.Email, user.PasswordHash, user.Name, user.Image, user.IsAdmin, user.CreatedAt, user.UpdatedAt).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
			errMsg:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			err = repo.Create(context.Background(), user)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	name := "Alice"

	tests := []struct {
		name      string
		email     string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *auth.User
		wantErr   bool
		errIs     error
	}{
		{
			name:  "found",
			email: "alice@example.com",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "name", "image", "is_admin", "created_at", "updated_at"}).
					AddRow("user-1", "alice@example.com", "hash", &name, (*string)(nil), false, now, now)
				mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
					WithArgs("alice@example.com").
					WillReturnRows(rows)
			},
			want: &auth.User{
				ID:           "user-1",
				Email:        "alice@example.com",
				PasswordHash: "hash",
				Name:         "Alice",
				CreatedAt:    now,
				UpdatedAt:    now,
			},
		},
		{
			name:  "not found",
			email: "nobody@example.com",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "name", "image", "is_admin", "created_at", "updated_at"})
				mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
					WithArgs("nobody@example.com").
					WillReturnRows(rows)
			},
			wantErr: true,
			errIs:   auth.ErrNotFound,
		},
		{
			name:  "database error",
			email: "alice@example.com",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
					WithArgs("alice@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewUserRepository(mock)
			got, err := repo.GetByEmail(context.Background(), tt.email)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "name", "image", "is_admin", "created_at", "updated_at"}).
			AddRow("user-1", "alice@example.com", "hash", (*string)(nil), (*string)(nil), true, now, now)
		mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
			WithArgs("user-1").
			WillReturnRows(rows)

		repo := NewUserRepository(mock)
		got, err := repo.GetByID(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.True(t, got.IsAdmin)
		assert.Empty(t, got.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "name", "image", "is_admin", "created_at", "updated_at"})
		mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(rows)

		repo := NewUserRepository(mock)
		_, err = repo.GetByID(context.Background(), "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
