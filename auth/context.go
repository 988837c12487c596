package auth

import (
	"context"

	"github.com/andrebq/authbox/userdb"
)

type (
	key byte
)

var (
	userKey = key(1)
)

func WithUser(ctx context.Context, u *userdb.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the user authenticated for ctx, or nil.
func UserFrom(ctx context.Context) *userdb.User {
	u, _ := ctx.Value(userKey).(*userdb.User)
	return u
}
