package domain

import "time"

// Role enumerates portal roles.
type Role string

const (
	RoleRequestor Role = "requestor"
	RoleEngineer  Role = "engineer"
	RoleAdmin     Role = "admin"
)

// User is the domain model for everyone who signs in: account managers
// filing requests, engineers working them, and administrators.
type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
