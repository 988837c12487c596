package webapi

import (
	"errors"
	"net/http"

	"github.com/andrebq/authbox/auth"
	"github.com/andrebq/authbox/internal/httpjson"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/userdb"
	"github.com/julienschmidt/httprouter"
)

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, httpjson.M{"status": "OK"})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	n, err := h.users.Count(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, httpjson.M{"users": n})
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	out := make([]userdb.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	if id == "me" {
		current := auth.UserFrom(r.Context())
		if current == nil {
			httpjson.Error(w, http.StatusNotFound, "Not found")
			return
		}
		httpjson.Write(w, http.StatusOK, current.Public())
		return
	}
	u, err := h.users.FindUserBy(r.Context(), userdb.ByID, id)
	if errors.As(err, &userdb.UserNotFound{}) {
		httpjson.Error(w, http.StatusNotFound, "Not found")
		return
	} else if err != nil {
		h.internalError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, u.Public())
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if email == "" {
		httpjson.Error(w, http.StatusBadRequest, "email missing")
		return
	}
	pw := r.FormValue("password")
	if pw == "" {
		httpjson.Error(w, http.StatusBadRequest, "password missing")
		return
	}
	ctx := r.Context()
	u, err := h.users.FindUserBy(ctx, userdb.ByEmail, email)
	if errors.As(err, &userdb.UserNotFound{}) {
		httpjson.Error(w, http.StatusNotFound, "no user found for this email")
		return
	} else if err != nil {
		h.internalError(w, r, err)
		return
	}
	ok, err := h.hasher.Verify(pw, u.HashedPassword)
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Err(err).Str("user.id", u.ID).Msg("Stored password hash cannot be verified")
	}
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "wrong password")
		return
	}
	sid, err := h.sessions.CreateSession(ctx, u.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessions.CookieName(),
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httpjson.Write(w, http.StatusOK, u.Public())
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	destroyed, err := h.sessions.DestroySession(r)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !destroyed {
		httpjson.Error(w, http.StatusNotFound, "Not found")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   h.sessions.CookieName(),
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	httpjson.Write(w, http.StatusOK, httpjson.M{})
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log := logutil.GetOrDefault(r.Context())
	log.Error().Err(err).Str("http.path", r.URL.Path).Msg("Unable to serve request")
	httpjson.Error(w, http.StatusInternalServerError, "Internal error")
}
