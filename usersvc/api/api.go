// Package api exposes usersvc over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrebq/authbox/auth"
	"github.com/andrebq/authbox/internal/httpjson"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/userdb"
	"github.com/andrebq/authbox/usersvc"
	"github.com/julienschmidt/httprouter"
)

type (
	Config struct {
		Auth *usersvc.Auth
		// CookieName defaults to auth.DefaultCookieName
		CookieName string
	}

	handlers struct {
		auth   *usersvc.Auth
		cookie string
	}
)

func AsHandler(ctx context.Context, cfg Config) (http.Handler, error) {
	if cfg.Auth == nil {
		return nil, errors.New("usersvc/api: auth service is required")
	}
	h := &handlers{auth: cfg.Auth, cookie: cfg.CookieName}
	if h.cookie == "" {
		h.cookie = auth.DefaultCookieName
	}
	router := httprouter.New()
	router.NotFound = httpjson.StatusHandler(http.StatusNotFound, "Not found")
	router.MethodNotAllowed = httpjson.StatusHandler(http.StatusMethodNotAllowed, "Method not allowed")

	router.HandlerFunc("GET", "/", h.index)
	router.HandlerFunc("POST", "/users", h.register)
	router.HandlerFunc("POST", "/sessions", h.login)
	router.HandlerFunc("DELETE", "/sessions", h.logout)
	router.HandlerFunc("GET", "/profile", h.profile)
	router.HandlerFunc("POST", "/reset_password", h.resetToken)
	router.HandlerFunc("PUT", "/reset_password", h.updatePassword)
	return router, nil
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, httpjson.M{"message": "Bienvenue"})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	email, pw := r.FormValue("email"), r.FormValue("password")
	if email == "" || pw == "" {
		httpjson.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	_, err := h.auth.RegisterUser(r.Context(), email, pw)
	if errors.Is(err, usersvc.DuplicateRegistration{Email: email}) {
		httpjson.Error(w, http.StatusBadRequest, "email already registered")
		return
	} else if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, httpjson.M{"email": email, "message": "user created"})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email, pw := r.FormValue("email"), r.FormValue("password")
	if email == "" || pw == "" || !h.auth.ValidLogin(ctx, email, pw) {
		httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	sid, err := h.auth.CreateSession(ctx, email)
	if err != nil {
		h.internalError(w, r, err)
		return
	} else if sid == "" {
		httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httpjson.Write(w, http.StatusOK, httpjson.M{"email": email, "message": "logged in"})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := h.auth.DestroySession(r.Context(), u.ID); err != nil {
		h.internalError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: h.cookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	httpjson.Write(w, http.StatusOK, httpjson.M{"email": u.Email})
}

func (h *handlers) resetToken(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token, err := h.auth.ResetPasswordToken(r.Context(), email)
	if errors.As(err, &usersvc.InvalidResetRequest{}) {
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
		return
	} else if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, httpjson.M{"email": email, "reset_token": token})
}

func (h *handlers) updatePassword(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token := r.FormValue("reset_token")
	pw := r.FormValue("new_password")
	if pw == "" {
		httpjson.Error(w, http.StatusBadRequest, "new_password is required")
		return
	}
	err := h.auth.UpdatePasswordFor(r.Context(), email, token, pw)
	if errors.Is(err, usersvc.InvalidResetToken{}) {
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
		return
	} else if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, httpjson.M{"email": email, "message": "Password updated"})
}

func (h *handlers) currentUser(w http.ResponseWriter, r *http.Request) (*userdb.User, bool) {
	sid := auth.Base{Cookie: h.cookie}.SessionCookie(r)
	u, err := h.auth.UserFromSessionID(r.Context(), sid)
	if err != nil {
		h.internalError(w, r, err)
		return nil, false
	} else if u == nil {
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return u, true
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log := logutil.GetOrDefault(r.Context())
	log.Error().Err(err).Str("http.path", r.URL.Path).Msg("Unable to serve request")
	httpjson.Error(w, http.StatusInternalServerError, "Internal error")
}
