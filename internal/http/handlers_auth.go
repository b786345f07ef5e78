package http

import (
	"net/http"
	"time"

	"expensetracker/internal/auth"
)

type (
	registerRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}

	sess, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Name:     sanitizeInput(req.Name),
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	s.sessionResponse(sess).
		Status(http.StatusCreated).
		Message("Registration successful").
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "")
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	s.sessionResponse(sess).Message("Login successful").Write(w)
}

// handleLogout clears the cookie. Bearer tokens stay valid until they expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Cookie(s.sessionCookie("", time.Unix(0, 0))).
		Message("Logged out successfully").
		Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Data(newUserView(u)).Write(w)
}

func (s *Server) sessionResponse(sess auth.Session) *JSONResponseBuilder {
	return NewJSONResponse().
		Cookie(s.sessionCookie(sess.Token, sess.ExpiresAt)).
		Field("token", sess.Token).
		Field("user", newUserView(sess.User))
}

func (s *Server) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     tokenCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}
