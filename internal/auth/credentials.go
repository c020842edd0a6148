// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when no user matches the email, so
// the unknown-email and wrong-password paths both pay for one argon2id
// computation. This is NOT a real credential and never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack mitigation, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialVerifier validates submitted email/password pairs against the
// user store, producing a verified identity or a classified failure.
type CredentialVerifier struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewCredentialVerifier creates a CredentialVerifier.
// Returns an error if any required dependency is nil.
func NewCredentialVerifier(users UserRepository, hasher PasswordHasher) (*CredentialVerifier, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &CredentialVerifier{users: users, hasher: hasher}, nil
}

// Verify resolves an email/password pair to a user.
//
// Malformed input fails immediately without touching the store. Unknown
// email and wrong password return byte-identical errors, and the unknown
// path still runs a hash verification so the two are not separable by
// response time either.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*User, error) {
	if ValidateEmail(email) != nil || password == "" {
		return nil, errInvalidCredentials()
	}

	user, lookupErr := v.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Fall through to the dummy verification.
	default:
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := v.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, errInvalidCredentials()
		}
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, errInvalidCredentials()
	}

	return user, nil
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("%s", invalidCredentialsMessage)
}
