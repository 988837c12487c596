// Package password hashes and verifies user credentials.
//
// Mismatches are never errors: Verify returns false, nil when the
// password does not match and an error only when the stored hash
// itself cannot be understood.
package password

import "fmt"

type (
	Hasher interface {
		Hash(plain string) (string, error)
		Verify(plain, hash string) (bool, error)
	}

	UnknownHasher struct {
		Name string
	}
)

const (
	BcryptName   = "bcrypt"
	Argon2idName = "argon2id"
)

func (u UnknownHasher) Error() string {
	return fmt.Sprintf("password: unknown hasher %q", u.Name)
}

// ByName returns the hasher configured under name using its default
// parameters. An empty name selects bcrypt.
func ByName(name string) (Hasher, error) {
	switch name {
	case "", BcryptName:
		return NewBcrypt(DefaultBcryptCost), nil
	case Argon2idName:
		return NewArgon2id(DefaultArgon2idParams()), nil
	}
	return nil, UnknownHasher{Name: name}
}
