// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum password length accepted at registration.
const MinPasswordLength = 8

// MaxEmailLength matches the email column width in the database.
const MaxEmailLength = 255

// emailRegex accepts addresses of the shape local@domain.tld. Deliverability
// is not checked here; this only rejects obviously malformed input before
// any store lookup happens.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Image        string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with a fresh unguessable id.
// The password must already be hashed; NewUser never sees plaintext.
func NewUser(email, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail validates the syntactic shape of a login email.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeValidation).Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code(CodeValidation).
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code(CodeValidation).Errorf("email is not a valid address")
	}
	return nil
}

// ValidatePassword validates a password submitted at registration.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code(CodeValidation).
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrEmailTaken
	// when the email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by id. Returns an error wrapping
	// ErrNotFound when no such user exists.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email (exact match, as stored).
	// Returns an error wrapping ErrNotFound when no such user exists.
	GetByEmail(ctx context.Context, email string) (*User, error)
}
