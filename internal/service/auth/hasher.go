package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt password hasher
// Password is pre-hashed with sha256, so bcrypt 72 bytes limit never cuts it
type BcryptHasher struct {
	// Zero means bcrypt.DefaultCost
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	if err != nil {
		return "", fmt.Errorf("error while hashing password. Err: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored hash
// Malformed hash is an error, plain mismatch is not
func (h BcryptHasher) Verify(hashedPassword string, password string) (bool, error) {
	sum := sha256.Sum256([]byte(password))
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("error while comparing password. Err: %w", err)
	}
}
