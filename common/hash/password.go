package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost used for new hashes
var Cost = bcrypt.DefaultCost

// HashPassword hashes a plain password with bcrypt
func HashPassword(plainPassword string) (string, error) {
	if plainPassword == "" {
		return "", errors.New("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainPassword), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword compares a plain password with a stored bcrypt hash
func VerifyPassword(plainPassword, storedHash string) bool {
	if plainPassword == "" || storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plainPassword)) == nil
}
