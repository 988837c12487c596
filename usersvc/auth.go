// Package usersvc implements the user authentication service: account
// registration, login sessions bound to the user record and password
// resets.
package usersvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/userdb"
	"github.com/google/uuid"
)

type (
	Store interface {
		AddUser(ctx context.Context, email, hashedPassword string) (*userdb.User, error)
		FindUserBy(ctx context.Context, field userdb.Field, value string) (*userdb.User, error)
		UpdateUser(ctx context.Context, id string, changes ...userdb.Change) error
	}

	Auth struct {
		store  Store
		hasher password.Hasher
		newID  func() string
	}

	DuplicateRegistration struct {
		Email string
	}

	InvalidResetRequest struct {
		Email string
	}

	InvalidResetToken struct{}
)

func (d DuplicateRegistration) Error() string {
	return fmt.Sprintf("user %v already exists", d.Email)
}

func (i InvalidResetRequest) Error() string {
	return fmt.Sprintf("cannot reset password for %v", i.Email)
}

func (InvalidResetToken) Error() string {
	return "invalid reset token"
}

func New(store Store, hasher password.Hasher) *Auth {
	return &Auth{store: store, hasher: hasher, newID: uuid.NewString}
}

// RegisterUser hashes pw and stores a new account for email.
func (a *Auth) RegisterUser(ctx context.Context, email, pw string) (*userdb.User, error) {
	_, err := a.store.FindUserBy(ctx, userdb.ByEmail, email)
	if err == nil {
		return nil, DuplicateRegistration{Email: email}
	} else if !errors.As(err, &userdb.UserNotFound{}) {
		return nil, err
	}
	hash, err := a.hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("unable to hash password for %v, cause %w", email, err)
	}
	u, err := a.store.AddUser(ctx, email, hash)
	if errors.As(err, &userdb.DuplicateEmail{}) {
		// lost a race against another registration
		return nil, DuplicateRegistration{Email: email}
	}
	return u, err
}

// ValidLogin reports whether pw matches the password registered for
// email. Lookup failures count as invalid.
func (a *Auth) ValidLogin(ctx context.Context, email, pw string) bool {
	u, err := a.store.FindUserBy(ctx, userdb.ByEmail, email)
	if err != nil {
		if !errors.As(err, &userdb.UserNotFound{}) {
			log := logutil.GetOrDefault(ctx)
			log.Error().Err(err).Msg("Unable to validate login")
		}
		return false
	}
	ok, err := a.hasher.Verify(pw, u.HashedPassword)
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Err(err).Str("user.id", u.ID).Msg("Stored password hash cannot be verified")
	}
	return ok
}

// CreateSession stores a fresh session id on the user, replacing any
// previous one. Unknown emails yield an empty id.
func (a *Auth) CreateSession(ctx context.Context, email string) (string, error) {
	u, err := a.store.FindUserBy(ctx, userdb.ByEmail, email)
	if errors.As(err, &userdb.UserNotFound{}) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	sid := a.newID()
	if err := a.store.UpdateUser(ctx, u.ID, userdb.SetSessionID(sid)); err != nil {
		return "", err
	}
	return sid, nil
}

func (a *Auth) UserFromSessionID(ctx context.Context, sid string) (*userdb.User, error) {
	if sid == "" {
		return nil, nil
	}
	u, err := a.store.FindUserBy(ctx, userdb.BySessionID, sid)
	if errors.As(err, &userdb.UserNotFound{}) {
		return nil, nil
	}
	return u, err
}

func (a *Auth) DestroySession(ctx context.Context, userID string) error {
	return a.store.UpdateUser(ctx, userID, userdb.SetSessionID(""))
}

// ResetPasswordToken issues a new reset token for email.
func (a *Auth) ResetPasswordToken(ctx context.Context, email string) (string, error) {
	u, err := a.store.FindUserBy(ctx, userdb.ByEmail, email)
	if errors.As(err, &userdb.UserNotFound{}) {
		return "", InvalidResetRequest{Email: email}
	} else if err != nil {
		return "", err
	}
	token := a.newID()
	if err := a.store.UpdateUser(ctx, u.ID, userdb.SetResetToken(token)); err != nil {
		return "", err
	}
	return token, nil
}

// UpdatePassword replaces the password of the user holding token. The
// token is consumed.
func (a *Auth) UpdatePassword(ctx context.Context, token, pw string) error {
	return a.updatePassword(ctx, token, pw, func(*userdb.User) bool { return true })
}

// UpdatePasswordFor is UpdatePassword restricted to the account
// registered with email.
func (a *Auth) UpdatePasswordFor(ctx context.Context, email, token, pw string) error {
	return a.updatePassword(ctx, token, pw, func(u *userdb.User) bool { return u.Email == email })
}

func (a *Auth) updatePassword(ctx context.Context, token, pw string, accept func(*userdb.User) bool) error {
	if token == "" {
		return InvalidResetToken{}
	}
	u, err := a.store.FindUserBy(ctx, userdb.ByResetToken, token)
	if errors.As(err, &userdb.UserNotFound{}) {
		return InvalidResetToken{}
	} else if err != nil {
		return err
	}
	if !accept(u) {
		return InvalidResetToken{}
	}
	hash, err := a.hasher.Hash(pw)
	if err != nil {
		return fmt.Errorf("unable to hash password for %v, cause %w", u.ID, err)
	}
	return a.store.UpdateUser(ctx, u.ID, userdb.SetHashedPassword(hash), userdb.SetResetToken(""))
}
