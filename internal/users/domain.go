package users

import (
	"time"

	"github.com/google/uuid"
)

// Role names assignable to users.
const (
	RoleUser       = "USER"
	RoleQuantifier = "QUANTIFIER"
	RoleForwarder  = "FORWARDER"
	RoleAdmin      = "ADMIN"
)

// User is a community member able to log in, receive rewards, and, with the
// QUANTIFIER role, score praise.
type User struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	EthereumAddress string    `json:"ethereumAddress,omitempty"`
	PasswordHash    string    `json:"-"`
	Roles           []string  `json:"roles"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasRole reports whether the user carries the given role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserAccount is a chat-platform identity (e.g. a Discord account) praise is
// given from and to. It may be linked to a User once the member activates.
type UserAccount struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user,omitempty"`
	AccountID string     `json:"accountId"`
	Name      string     `json:"name"`
	Platform  string     `json:"platform"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
