// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/squarecheck/squarecheck/internal/auth"
	"github.com/squarecheck/squarecheck/pkg/errutil"
)

// Redirect targets after auth state changes, matching the pages the
// front-end serves.
const (
	afterLoginPath  = "/"
	afterLogoutPath = "/auth/login"
)

type credentialsForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Image   string `json:"image,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Image:   u.Image,
		IsAdmin: u.IsAdmin,
	}
}

// handleLogin verifies credentials and starts a session. Success redirects
// with the session cookie set; any credential failure yields the same
// generic 400 so the endpoint cannot be used to probe registered emails.
func (s *Server) handleLogin(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		s.countLogin("invalid_credentials")
		c.String(http.StatusBadRequest, "Invalid email or password")
		return
	}

	_, cookie, err := s.service.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		if errutil.HasCode(err, auth.CodeInvalidCredentials) {
			s.countLogin("invalid_credentials")
			c.String(http.StatusBadRequest, "Invalid email or password")
			return
		}
		s.countLogin("error")
		errutil.LogError(s.logger, "login failed", err)
		c.String(http.StatusInternalServerError, "An unknown error occurred")
		return
	}

	s.countLogin("success")
	s.setCookie(c, cookie)
	c.Redirect(http.StatusFound, afterLoginPath)
}

// handleRegister creates an account and logs it straight in.
func (s *Server) handleRegister(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		s.countRegistration("invalid")
		c.String(http.StatusBadRequest, "Invalid email or password")
		return
	}

	_, cookie, err := s.service.Register(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		switch {
		case errutil.HasCode(err, auth.CodeEmailTaken):
			s.countRegistration("email_taken")
			c.String(http.StatusBadRequest, "Email already used")
		case errutil.HasCode(err, auth.CodeValidation):
			s.countRegistration("invalid")
			c.String(http.StatusBadRequest, "Invalid email or password")
		default:
			s.countRegistration("error")
			errutil.LogError(s.logger, "registration failed", err)
			c.String(http.StatusInternalServerError, "An unknown error occurred")
		}
		return
	}

	s.countRegistration("success")
	s.setCookie(c, cookie)
	c.Redirect(http.StatusFound, afterLoginPath)
}

// handleLogout tears down the current session. Requests without a valid
// session get 401 and nothing is mutated.
func (s *Server) handleLogout(c *gin.Context) {
	sessionID, _ := c.Cookie(auth.SessionCookieName)

	cookie, err := s.service.Logout(c.Request.Context(), sessionID)
	if err != nil {
		if errutil.HasCode(err, auth.CodeUnauthorized) {
			c.String(http.StatusUnauthorized, "Unauthorized")
			return
		}
		errutil.LogError(s.logger, "logout failed", err)
		c.String(http.StatusInternalServerError, "An unknown error occurred")
		return
	}

	s.setCookie(c, cookie)
	c.Redirect(http.StatusFound, afterLogoutPath)
}

// handleMe returns the authenticated user. RequireAuth has already placed
// the validation in the request context.
func (s *Server) handleMe(c *gin.Context) {
	v := s.validate(c)
	if v.User == nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(v.User))
}

func (s *Server) setCookie(c *gin.Context, cookie auth.SessionCookie) {
	http.SetCookie(c.Writer, cookie.HTTPCookie())
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}
