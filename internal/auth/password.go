// Package auth provides password hashing and session token primitives.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is fixed; raising it invalidates no existing hashes but
// slows new registrations, so change it deliberately.
const bcryptCost = 10

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks if the password matches the stored hash.
// Any error, including a malformed hash, reads as a mismatch: callers
// get a plain boolean and never see a fault from this boundary.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
