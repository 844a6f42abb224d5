package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword is returned when a password fails the validators.
var ErrWeakPassword = errors.New("password does not meet the strength requirements")

const minPasswordLength = 12

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]{3,150}$`)

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword validates a password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the account password policy: at least 12
// characters with upper case, lower case, a digit, and a special character.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.New("password must be at least 12 characters long")
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}
	return nil
}

// ValidateUsername checks the allowed username alphabet and length.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(strings.TrimSpace(username)) {
		return errors.New("username must be 3-150 characters of letters, digits and @/./+/-/_")
	}
	return nil
}
