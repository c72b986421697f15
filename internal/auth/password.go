package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"chatrelay-backend/internal/logging"
)

// HashPassword generates a bcrypt hash for the given password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logging.Error().Err(err).Msg("[Auth] Error generating bcrypt hash")
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			// Log unexpected errors, but still return false
			logging.Warn().Err(err).Msg("[Auth] Error comparing password hash")
		}
		return false
	}
	return true
}
