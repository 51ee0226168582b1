package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("password is incorrect")
	ErrAvatarRequired     = errors.New("avatar file is required")
	ErrAvatarNotImage     = errors.New("avatar must be png, jpg, jpeg, gif or webp image")

	// Request carries no token at all
	ErrNoToken = errors.New("no token")

	// Token did not pass signature, format or expiry checks
	ErrTokenInvalid = errors.New("invalid token")

	// Token is well-formed and signed but is not the one stored for the user
	ErrRefreshTokenIsUsed = errors.New("refresh token is expired or used")

	// Stored refresh token changed between read and conditional write
	ErrSessionConflict = errors.New("session changed concurrently")

	ErrExpenseNotFound = errors.New("expense entry not found")
	ErrNegativeAmount  = errors.New("amount must not be negative")
)
