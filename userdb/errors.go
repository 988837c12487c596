package userdb

import "fmt"

type (
	UserNotFound struct {
		Field Field
		Value string
	}

	DuplicateEmail struct {
		Email string
	}

	InvalidField struct {
		Field Field
	}
)

func (u UserNotFound) Error() string {
	switch u.Field {
	case BySessionID, ByResetToken:
		// tokens are credentials, keep them out of error messages
		return fmt.Sprintf("no user found with the given %v", u.Field)
	}
	return fmt.Sprintf("no user found with %v %q", u.Field, u.Value)
}

func (d DuplicateEmail) Error() string {
	return fmt.Sprintf("user %v already exists", d.Email)
}

func (i InvalidField) Error() string {
	return fmt.Sprintf("%v is not a valid user lookup field", i.Field)
}
