// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

// Package auth provides session-based authentication for SquareCheck.
//
// # Domain Types
//
// Domain types (User, Session, SessionCookie) should be created using
// their respective constructors:
//   - NewUser - creates a User with a fresh id and validated email
//   - NewSession - creates a Session with a fresh bearer token and expiry
//   - NewSessionCookie / NewBlankSessionCookie - cookie descriptors
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - CredentialVerifier - email/password verification
//   - SessionManager - session creation, validation with renewal, teardown
//   - Service - login, logout, registration, current-user resolution
//
// Services are created with New* constructors that validate dependencies.
package auth
