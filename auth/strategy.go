// Package auth implements the authentication strategies that can be
// selected for the API: a plain one which only knows about excluded
// paths, HTTP Basic authentication and cookie based sessions.
//
// Strategies never turn malformed credentials into errors, a request
// with garbage in its Authorization header simply has no user. Errors
// are reserved for failures of the underlying stores.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andrebq/authbox/internal/metrics"
	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/sessions"
	"github.com/andrebq/authbox/userdb"
)

type (
	Strategy interface {
		RequiresAuth(path string, excluded []string) bool
		// Credential returns the raw credential carried by r, if any.
		Credential(r *http.Request) string
		// CurrentUser returns nil when r does not identify a user.
		CurrentUser(r *http.Request) (*userdb.User, error)
	}

	// SessionManager is implemented by strategies able to log users
	// in and out.
	SessionManager interface {
		Strategy
		CookieName() string
		CreateSession(ctx context.Context, userID string) (string, error)
		DestroySession(r *http.Request) (bool, error)
	}

	UserFinder interface {
		FindUserBy(ctx context.Context, field userdb.Field, value string) (*userdb.User, error)
	}

	Kind string

	Config struct {
		Kind       Kind
		CookieName string

		Users  UserFinder
		Hasher password.Hasher

		// BasicCacheWindow is how long a verified Basic credential is
		// remembered, zero disables the cache.
		BasicCacheWindow time.Duration

		// SessionTTL only applies to KindSessionExp and KindSessionDB.
		SessionTTL time.Duration
		// Persister is required by KindSessionDB.
		Persister sessions.Persister
		Metrics   *metrics.Auth
		Clock     func() time.Time
	}

	UnknownKind struct {
		Name string
	}
)

const (
	KindNone       Kind = "none"
	KindAuth       Kind = "auth"
	KindBasic      Kind = "basic_auth"
	KindSession    Kind = "session_auth"
	KindSessionExp Kind = "session_exp_auth"
	KindSessionDB  Kind = "session_db_auth"

	DefaultCookieName = "session_id"
)

func (u UnknownKind) Error() string {
	return fmt.Sprintf("auth: unknown strategy %q", u.Name)
}

// ParseKind accepts the strategy names used in AUTH_TYPE, an empty
// value means no strategy.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(name); k {
	case "", KindNone:
		return KindNone, nil
	case KindAuth, KindBasic, KindSession, KindSessionExp, KindSessionDB:
		return k, nil
	}
	return "", UnknownKind{Name: name}
}

func (k Kind) UsesSessions() bool {
	return k == KindSession || k == KindSessionExp || k == KindSessionDB
}

// New builds the strategy selected by cfg.Kind. KindNone returns a nil
// Strategy, meaning requests are never checked.
func New(ctx context.Context, cfg Config) (Strategy, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	base := Base{Cookie: cfg.CookieName}
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindAuth:
		return base, nil
	case KindBasic:
		if cfg.Users == nil || cfg.Hasher == nil {
			return nil, fmt.Errorf("auth: %v requires a user store and a hasher", cfg.Kind)
		}
		basic, err := NewBasic(ctx, base, cfg.Users, cfg.Hasher, cfg.BasicCacheWindow)
		if err != nil {
			return nil, err
		}
		return basic, nil
	case KindSession, KindSessionExp, KindSessionDB:
		if cfg.Users == nil {
			return nil, fmt.Errorf("auth: %v requires a user store", cfg.Kind)
		}
		opts := []sessions.Option{sessions.WithMetrics(cfg.Metrics)}
		if cfg.Clock != nil {
			opts = append(opts, sessions.WithClock(cfg.Clock))
		}
		if cfg.Kind != KindSession {
			opts = append(opts, sessions.WithTTL(cfg.SessionTTL))
		}
		if cfg.Kind == KindSessionDB {
			if cfg.Persister == nil {
				return nil, fmt.Errorf("auth: %v requires a session persister", cfg.Kind)
			}
			opts = append(opts, sessions.WithPersistence(cfg.Persister))
		}
		return NewSession(base, cfg.Users, sessions.New(opts...)), nil
	}
	return nil, UnknownKind{Name: string(cfg.Kind)}
}
