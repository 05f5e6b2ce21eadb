package auth

import (
	"errors"
	"strings"
	"unicode"
)

// PasswordValidationError lists every rule a candidate password broke.
type PasswordValidationError struct {
	Messages []string
}

func (e *PasswordValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

const minPasswordLen = 12

// ValidatePassword checks a candidate password against the account
// policy: at least 12 characters, with an uppercase letter, a lowercase
// letter, a digit, and a special character. All broken rules are
// reported at once so the caller can show the full list.
func ValidatePassword(password string) error {
	var messages []string

	if len(password) < minPasswordLen {
		messages = append(messages, "password must be at least 12 characters")
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
		case isSpecialChar(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		messages = append(messages, "password must contain at least 1 uppercase letter")
	}
	if !hasLower {
		messages = append(messages, "password must contain at least 1 lowercase letter")
	}
	if !hasDigit {
		messages = append(messages, "password must contain at least 1 digit")
	}
	if !hasSpecial {
		messages = append(messages, "password must contain at least 1 special character (!@#$%^&*...)")
	}

	if len(messages) > 0 {
		return &PasswordValidationError{Messages: messages}
	}

	return nil
}

func isSpecialChar(r rune) bool {
	return strings.ContainsRune("!@#$%^&*()-_=+[]{}|;:',.<>?/`~\"\\", r)
}

// ValidatePasswordOrError collapses a policy failure to its first
// message, which is what the API error body carries.
func ValidatePasswordOrError(password string) error {
	if err := ValidatePassword(password); err != nil {
		var validErr *PasswordValidationError
		if errors.As(err, &validErr) {
			return errors.New(validErr.Messages[0])
		}
		return err
	}
	return nil
}
