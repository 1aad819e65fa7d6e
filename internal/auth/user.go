// Package auth provides local account authentication for ReadyRun: bcrypt
// password storage, JWT access tokens with rotating refresh tokens, and
// role-gated HTTP middleware.
package auth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role represents authorization levels. Athletes log sessions and read
// their scores; coaches get read-only access; admins manage accounts.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAthlete Role = "athlete"
	RoleCoach   Role = "coach"
)

// ValidRoles contains all valid role values.
var ValidRoles = map[Role]bool{
	RoleAdmin:   true,
	RoleAthlete: true,
	RoleCoach:   true,
}

// CanWrite reports whether the role may mutate state through the API.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleAthlete
}

// User represents a ReadyRun account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialized
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitempty"`
	Disabled     bool      `json:"disabled"`
}

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword checks that a password meets minimum requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
