package entity

import "time"

const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

type User struct {
	ID    string
	Email string
	Name  string
	Role  string

	EmailVerified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
