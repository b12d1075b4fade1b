package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateUserID validates a user identifier.
func ValidateUserID(id string) error {
	if len(id) == 0 {
		return errors.New("userId cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("userId exceeds maximum length")
	}
	return nil
}

// ValidateText validates free-form query/response text.
func ValidateText(field, text string) error {
	if len(text) == 0 {
		return errors.New(field + " cannot be empty")
	}
	if len(text) > 100000 {
		return errors.New(field + " exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New(field + " must be valid UTF-8")
	}
	return nil
}

// ValidateConfidence validates a 0-100 confidence value.
func ValidateConfidence(confidence int) error {
	if confidence < 0 || confidence > 100 {
		return errors.New("confidence must be between 0 and 100")
	}
	return nil
}

// ValidateCategory validates a preference category.
func ValidateCategory(category string) error {
	if len(category) == 0 {
		return errors.New("category cannot be empty")
	}
	if len(category) > 64 {
		return errors.New("category exceeds maximum length")
	}
	return nil
}
