package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is deliberately above the library default to resist offline
// brute force; changing it only affects newly produced hashes.
const bcryptCost = 12

// HashPassword hashes a plaintext password using bcrypt with an embedded salt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored hash in constant
// time. A mismatch returns (false, nil); an error is returned only when the
// stored hash itself is malformed.
func VerifyPassword(hash, password string) (bool, error) {
	if hash == "" {
		return false, errors.New("auth: password hash is empty")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// ChangePassword verifies the old password against the identity's stored hash
// and returns the hash of the new one. Persisting the returned hash is the
// caller's responsibility.
func ChangePassword(identity Identity, oldPassword, newPassword string) (string, error) {
	ok, err := VerifyPassword(identity.PasswordHash, oldPassword)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrWrongCredential
	}
	if len(newPassword) < 8 {
		return "", ErrInvalidInput
	}
	return HashPassword(newPassword)
}
