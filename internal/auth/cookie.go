// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie that carries the session id.
const SessionCookieName = "auth_session"

// CookieConfig controls the attributes of issued session cookies.
type CookieConfig struct {
	// Secure should be true in production-like environments (HTTPS).
	Secure bool

	// Domain is usually empty so the cookie binds to the origin host.
	Domain string
}

// SessionCookie describes a session cookie to be serialized by the
// transport layer. A blank descriptor (empty Value, past expiry) instructs
// the client to delete the cookie.
type SessionCookie struct {
	Name      string
	Value     string
	ExpiresAt time.Time
	Path      string
	Domain    string
	HTTPOnly  bool
	Secure    bool
	SameSite  http.SameSite
}

// NewSessionCookie creates a cookie descriptor carrying the session id.
// The cookie expiry mirrors the session expiry; validation re-issues the
// cookie whenever the session is renewed.
func NewSessionCookie(sessionID string, expiresAt time.Time, cfg CookieConfig) SessionCookie {
	return SessionCookie{
		Name:      SessionCookieName,
		Value:     sessionID,
		ExpiresAt: expiresAt,
		Path:      "/",
		Domain:    cfg.Domain,
		HTTPOnly:  true,
		Secure:    cfg.Secure,
		SameSite:  http.SameSiteLaxMode,
	}
}

// NewBlankSessionCookie creates a descriptor that forces client-side
// deletion: empty value, expiry in the past.
func NewBlankSessionCookie(cfg CookieConfig) SessionCookie {
	return SessionCookie{
		Name:      SessionCookieName,
		Value:     "",
		ExpiresAt: time.Unix(0, 0),
		Path:      "/",
		Domain:    cfg.Domain,
		HTTPOnly:  true,
		Secure:    cfg.Secure,
		SameSite:  http.SameSiteLaxMode,
	}
}

// Blank reports whether the descriptor instructs cookie deletion.
func (c SessionCookie) Blank() bool {
	return c.Value == ""
}

// HTTPCookie converts the descriptor into a net/http cookie.
func (c SessionCookie) HTTPCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.ExpiresAt,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
	if c.Blank() {
		cookie.MaxAge = -1
	}
	return cookie
}
