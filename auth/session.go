package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrebq/authbox/sessions"
	"github.com/andrebq/authbox/userdb"
)

type (
	// Session identifies users by the session cookie, the mapping from
	// cookie value to user lives in a sessions.Registry.
	Session struct {
		Base
		users    UserFinder
		registry *sessions.Registry
	}
)

func NewSession(base Base, users UserFinder, registry *sessions.Registry) *Session {
	if base.Cookie == "" {
		base.Cookie = DefaultCookieName
	}
	return &Session{
		Base:     base,
		users:    users,
		registry: registry,
	}
}

func (s *Session) Registry() *sessions.Registry {
	return s.registry
}

func (s *Session) CreateSession(ctx context.Context, userID string) (string, error) {
	return s.registry.Create(ctx, userID)
}

// DestroySession logs out the session carried by r.
func (s *Session) DestroySession(r *http.Request) (bool, error) {
	cookie := s.SessionCookie(r)
	if cookie == "" {
		return false, nil
	}
	return s.registry.Destroy(r.Context(), cookie)
}

func (s *Session) CurrentUser(r *http.Request) (*userdb.User, error) {
	cookie := s.SessionCookie(r)
	if cookie == "" {
		return nil, nil
	}
	ctx := r.Context()
	userID, err := s.registry.Resolve(ctx, cookie)
	if err != nil || userID == "" {
		return nil, err
	}
	u, err := s.users.FindUserBy(ctx, userdb.ByID, userID)
	if errors.As(err, &userdb.UserNotFound{}) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return u, nil
}

var (
	_ SessionManager = (*Session)(nil)
	_ Strategy       = (*Basic)(nil)
	_ Strategy       = Base{}
)
