package auth

import "errors"

var (
	ErrNotFound        = errors.New("auth: not found")
	ErrAlreadyExists   = errors.New("auth: already exists")
	ErrInvalidInput    = errors.New("auth: invalid input")
	ErrWrongCredential = errors.New("auth: wrong credential")

	// Token verification failures. Callers must distinguish them: the
	// user-facing messaging differs per class.
	ErrTokenMissing        = errors.New("auth: token missing")
	ErrTokenMalformed      = errors.New("auth: token malformed")
	ErrTokenExpired        = errors.New("auth: token expired")
	ErrTokenInvalid        = errors.New("auth: token invalid")
	ErrTokenInvalidPurpose = errors.New("auth: token purpose invalid")
)
