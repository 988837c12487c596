// Package webapi serves the /api/v1 surface protected by the
// configured authentication strategy.
package webapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrebq/authbox/auth"
	authapi "github.com/andrebq/authbox/auth/api"
	"github.com/andrebq/authbox/internal/httpjson"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/internal/metrics"
	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/userdb"
	"github.com/julienschmidt/httprouter"
)

type (
	Users interface {
		auth.UserFinder
		ListUsers(ctx context.Context) ([]*userdb.User, error)
		Count(ctx context.Context) (int, error)
	}

	Config struct {
		Users    Users
		Hasher   password.Hasher
		Strategy auth.Strategy
		// Excluded lists the paths served without authentication,
		// DefaultExcluded is used when nil.
		Excluded []string
		Metrics  *metrics.Auth
	}

	handlers struct {
		users    Users
		hasher   password.Hasher
		sessions auth.SessionManager
	}
)

var (
	DefaultExcluded = []string{
		"/api/v1/status/",
		"/api/v1/unauthorized/",
		"/api/v1/forbidden/",
		"/api/v1/auth_session/login/",
	}
)

// AsHandler returns the gated API. Login and logout routes are only
// mounted when the strategy manages sessions.
func AsHandler(ctx context.Context, cfg Config) (http.Handler, error) {
	if cfg.Users == nil {
		return nil, errors.New("webapi: a user store is required")
	}
	excluded := cfg.Excluded
	if excluded == nil {
		excluded = DefaultExcluded
	}
	h := &handlers{users: cfg.Users, hasher: cfg.Hasher}
	if sm, ok := cfg.Strategy.(auth.SessionManager); ok {
		if cfg.Hasher == nil {
			return nil, errors.New("webapi: session login requires a password hasher")
		}
		h.sessions = sm
	}

	router := httprouter.New()
	router.NotFound = httpjson.StatusHandler(http.StatusNotFound, "Not found")
	router.MethodNotAllowed = httpjson.StatusHandler(http.StatusMethodNotAllowed, "Method not allowed")
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Interface("panic", v).Msg("Handler panicked")
		httpjson.Error(w, http.StatusInternalServerError, "Internal error")
	}

	router.HandlerFunc("GET", "/api/v1/status", h.status)
	router.HandlerFunc("GET", "/api/v1/stats", h.stats)
	router.Handler("GET", "/api/v1/unauthorized", httpjson.StatusHandler(http.StatusUnauthorized, "Unauthorized"))
	router.Handler("GET", "/api/v1/forbidden", httpjson.StatusHandler(http.StatusForbidden, "Forbidden"))
	router.HandlerFunc("GET", "/api/v1/users", h.listUsers)
	router.GET("/api/v1/users/:id", h.getUser)
	if h.sessions != nil {
		router.HandlerFunc("POST", "/api/v1/auth_session/login", h.login)
		router.HandlerFunc("DELETE", "/api/v1/auth_session/logout", h.logout)
	}

	gate := authapi.NewGate(cfg.Strategy, excluded, cfg.Metrics)
	return gate.Protect(router), nil
}
