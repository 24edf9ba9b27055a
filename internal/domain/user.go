package domain

import (
	"strings"
	"time"
)

// DefaultUserRole is assigned when registration omits a role.
const DefaultUserRole = "User"

// User is a registered account. PasswordHash is a bcrypt digest.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	Company      string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// DisplayName joins first and last name, falling back to the email.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}
