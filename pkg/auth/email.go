package auth

import (
	"fmt"
	"net/mail"
	"strings"
)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates an email address for format and length.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email address is required")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email address is too long (max %d characters)", maxEmailLength)
	}
	normalized := NormalizeEmail(email)
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return fmt.Errorf("invalid email address format")
	}
	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
