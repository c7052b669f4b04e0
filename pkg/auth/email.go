package auth

import (
	"fmt"
	"net/mail"
	"strings"
)

const maxEmailLength = 254 // RFC 5321

// NormalizeEmail lowercases and trims an email address. All lookups and
// uniqueness checks operate on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks an email address for basic format and length.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email address is required")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email address is too long (max %d characters)", maxEmailLength)
	}
	addr, err := mail.ParseAddress(NormalizeEmail(email))
	if err != nil || addr.Name != "" {
		return fmt.Errorf("invalid email address format")
	}
	return nil
}
