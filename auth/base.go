package auth

import (
	"net/http"

	"github.com/andrebq/authbox/userdb"
)

type (
	// Base enforces excluded paths but never identifies anyone, every
	// protected request ends up forbidden.
	Base struct {
		Cookie string
	}
)

func (b Base) RequiresAuth(path string, excluded []string) bool {
	return RequiresAuth(path, excluded)
}

func (b Base) AuthorizationHeader(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Header.Get("Authorization")
}

// SessionCookie returns the value of the session cookie, if present.
func (b Base) SessionCookie(r *http.Request) string {
	if r == nil || b.Cookie == "" {
		return ""
	}
	c, err := r.Cookie(b.Cookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// Credential prefers the Authorization header over the session cookie.
func (b Base) Credential(r *http.Request) string {
	if h := b.AuthorizationHeader(r); h != "" {
		return h
	}
	return b.SessionCookie(r)
}

func (b Base) CurrentUser(*http.Request) (*userdb.User, error) {
	return nil, nil
}

func (b Base) CookieName() string {
	return b.Cookie
}
