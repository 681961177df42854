package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName = "quiz-session-id"
	MaxAge     = 7 * 24 * time.Hour
)

// Cookies issues and clears the session cookie. The zero value issues
// non-secure cookies.
type Cookies struct {
	Secure bool
}

// Ensure returns the session id carried by r, issuing a fresh one on w when the
// cookie is missing or not a valid UUID.
func (c Cookies) Ensure(w http.ResponseWriter, r *http.Request) string {
	if id, ok := FromRequest(r); ok {
		return id
	}
	id := NewID()
	http.SetCookie(w, c.cookie(id, int(MaxAge/time.Second)))
	return id
}

// Clear expires the cookie so the next request starts a new session.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c Cookies) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func FromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if _, err := uuid.Parse(value); err != nil {
		return "", false
	}
	return value, true
}

func NewID() string {
	return uuid.NewString()
}
