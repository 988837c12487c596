package userdb

import (
	"strings"
	"time"
)

type (
	User struct {
		ID             string
		Email          string
		HashedPassword string
		FirstName      string
		LastName       string
		SessionID      string
		ResetToken     string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// PublicUser is the representation of a user sent to clients.
	PublicUser struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		FirstName string    `json:"first_name,omitempty"`
		LastName  string    `json:"last_name,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

// DisplayName picks the most descriptive name available.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return strings.Join([]string{u.FirstName, u.LastName}, " ")
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
	}
}
