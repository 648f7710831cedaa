package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordMismatch = errors.New("password does not match")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordRunes)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
)

const (
	// counted in characters so "zażółć" is six, not ten
	minPasswordRunes = 8
	// bcrypt ignores everything past 72 bytes
	maxPasswordBytes = 72
	bcryptCost       = 12
)

// HashPassword validates a learner's chosen password and returns its bcrypt hash.
func HashPassword(password string) (string, error) {
	switch {
	case utf8.RuneCountInString(password) < minPasswordRunes:
		return "", ErrPasswordTooShort
	case len(password) > maxPasswordBytes:
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports ErrPasswordMismatch when password does not match hash.
// A malformed stored hash surfaces as a wrapped bcrypt error.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("check password: %w", err)
	}
	return nil
}
