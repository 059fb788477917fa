package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Guests are told apart by an opaque session id, sent either as a header or
// as a cookie. A request without one gets a fresh id in a cookie.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "gr_session"

	sessionMaxAge = 30 * 24 * 60 * 60
)

var (
	errInvalidSession = errors.New("invalid session id")

	sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)
)

// session returns the caller's session id, issuing a new one when absent.
func (s *HTTPServer) session(w http.ResponseWriter, r *http.Request) (string, error) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}
	if id != "" {
		if !sessionPattern.MatchString(id) {
			return "", errInvalidSession
		}
		return id, nil
	}

	id = uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/api",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, id)
	return id, nil
}

// requireSession writes a 400 and returns false when the session id is malformed.
func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := s.session(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}
