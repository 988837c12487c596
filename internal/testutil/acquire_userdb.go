package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/userdb"
	"golang.org/x/crypto/bcrypt"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}

	// Account is a user registered by AcquirePopulatedUserDB.
	Account struct {
		Email    string
		Password string
		User     *userdb.User
	}
)

// FastHasher is good enough for tests and keeps them quick.
func FastHasher() password.Hasher {
	return password.NewBcrypt(bcrypt.MinCost)
}

func AcquireUserDB(ctx context.Context, t TestLog, name string) (*userdb.DB, func()) {
	dir, err := os.MkdirTemp("", "authbox-tests")
	if err != nil {
		t.Fatal(err)
	}
	db, err := userdb.Open(ctx, filepath.Join(dir, name+".db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return db, func() {
		err := db.Close()
		if err != nil {
			t.Log("unable to close user database", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// AcquirePopulatedUserDB registers one user per email/password pair,
// passwords are hashed with hasher.
func AcquirePopulatedUserDB(ctx context.Context, t TestLog, hasher password.Hasher, credentials ...string) (*userdb.DB, []Account, func()) {
	if len(credentials)%2 != 0 {
		t.Fatal("credentials must be given as email/password pairs")
	}
	db, cleanup := AcquireUserDB(ctx, t, "users")
	var accounts []Account
	for i := 0; i < len(credentials); i += 2 {
		hash, err := hasher.Hash(credentials[i+1])
		if err != nil {
			cleanup()
			t.Fatal(err)
		}
		u, err := db.AddUser(ctx, credentials[i], hash)
		if err != nil {
			cleanup()
			t.Fatal(err)
		}
		accounts = append(accounts, Account{Email: credentials[i], Password: credentials[i+1], User: u})
	}
	return db, accounts, cleanup
}
