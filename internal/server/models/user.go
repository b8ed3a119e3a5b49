// Package models defines server-side domain types persisted in the database.
package models

import "time"

// Role is the access level an actor carries for its whole lifetime.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAttendant Role = "attendant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAttendant
}

type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Actor returns the identity used to gate operations performed by u.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, UserName: u.UserName, Role: u.Role}
}

// Actor is the authenticated caller passed explicitly into every operation.
type Actor struct {
	ID       int64
	UserName string
	Role     Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
