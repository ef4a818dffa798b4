package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is bcrypt's input limit in bytes
const MaxPasswordLength = 72

// ValidatePassword returns a client-facing reason when password cannot be
// hashed, or "". Any non-empty password up to MaxPasswordLength is accepted.
func ValidatePassword(password string) string {
	switch {
	case password == "":
		return "Password is required"
	case len(password) > MaxPasswordLength:
		return fmt.Sprintf("Password must be at most %d bytes long", MaxPasswordLength)
	}
	return ""
}

// HashPassword hashes password with bcrypt at the given cost
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether password matches hash. Malformed hashes never match.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
