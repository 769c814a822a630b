package auth

import "time"

// Role represents a user's authorization role, a closed enumeration.
type Role string

const (
	RoleAdmin Role = "admin" // full access to admin-only resources
	RoleUser  Role = "user"  // regular authenticated access
)

// ParseRole validates a role string against the closed enumeration
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), true
	}
	return "", false
}

// User represents an identity and credential record
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose hash
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// WithoutHash returns a copy of the user with the password hash stripped.
// Every User leaving the auth core goes through this.
func (u *User) WithoutHash() *User {
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// NewUser holds the validated, hashed input for the store's insert
type NewUser struct {
	Name         string
	Email        string
	Username     string
	PasswordHash string
	Role         Role
}
