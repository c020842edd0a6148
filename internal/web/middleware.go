// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/squarecheck/squarecheck/internal/auth"
)

// validationKey memoizes the session validation in the gin context so a
// request validates at most once, no matter how many handlers ask.
const validationKey = "auth_validation"

// validate resolves the request's session cookie to a Validation, consulting
// the store only on the first call per request. The memo never outlives the
// request.
func (s *Server) validate(c *gin.Context) *auth.Validation {
	if cached, ok := c.Get(validationKey); ok {
		return cached.(*auth.Validation)
	}

	sessionID, _ := c.Cookie(auth.SessionCookieName)
	v := s.service.CurrentUser(c.Request.Context(), sessionID)
	c.Set(validationKey, v)

	switch {
	case v.Session == nil:
		s.countValidation("none")
		// Tell the client to drop a cookie that no longer names a session.
		if sessionID != "" {
			s.setCookie(c, s.service.BlankCookie())
		}
	case v.Fresh:
		s.countValidation("renewed")
		// The expiry moved; re-issue the cookie so the client tracks it.
		s.setCookie(c, s.service.Cookie(v.Session))
	default:
		s.countValidation("valid")
	}

	return v
}

// RequireAuth rejects requests that do not carry a valid session.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := s.validate(c)
		if v.User == nil {
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) countValidation(outcome string) {
	if s.metrics != nil {
		s.metrics.SessionValidationsTotal.WithLabelValues(outcome).Inc()
	}
}
