package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	ErrUsernameLength = errors.New("username must be between 3 and 30 characters")
	ErrUsernameFormat = errors.New("username can only contain letters, digits, dots, dashes and underscores")

	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooWeak  = errors.New("password must contain at least one lowercase letter, one uppercase letter, one number and one special character")
)

const passwordSpecialChars = "!@#$%^&*"

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateUsername returns the trimmed username or an error.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if n := len(username); n < 3 || n > 30 {
		return "", ErrUsernameLength
	}
	if !usernameRegex.MatchString(username) {
		return "", ErrUsernameFormat
	}
	return username, nil
}

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecialChars, r):
			special = true
		}
	}

	if !lower || !upper || !digit || !special {
		return ErrPasswordTooWeak
	}
	return nil
}
