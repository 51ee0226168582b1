package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string
	Email        string
	FullName     string
	Avatar       string
	PasswordHash string

	// Current refresh token, empty when the user is logged out
	RefreshToken string
}

// Sanitized returns a copy of the user without the password hash and refresh token
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}
