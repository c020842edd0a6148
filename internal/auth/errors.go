// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth

import "errors"

// Error codes attached to oops errors returned by this package. Transport
// layers branch on these to pick status codes and user-facing messages.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeValidation         = "AUTH_VALIDATION"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
)

// invalidCredentialsMessage is the single message used for every credential
// failure. Unknown email and wrong password must be indistinguishable.
const invalidCredentialsMessage = "Invalid email or password"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by UserRepository.Create when the email is
// already registered. Surfaced to callers as a generic conflict.
var ErrEmailTaken = errors.New("email already used")
