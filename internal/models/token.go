package models

import (
	"time"

	"github.com/google/uuid"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issues by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Identity claims carried by an access token
type AccessClaims struct {
	UserID   uuid.UUID
	Username string
	Email    string
	FullName string
}
