package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/credstack/credstack/pkg/domain"
)

// passwordSymbols is the punctuation set accepted by the strength policy.
const passwordSymbols = "!@#$%^&*()-_=+[]{};:,.<>?/"

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSymbol    bool
}

// DefaultPasswordPolicy returns the policy enforced at registration and
// password reset: at least 8 characters with one uppercase letter, one
// lowercase letter, one digit, and one symbol.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSymbol:    true,
	}
}

// Validate checks a password against the policy. Failures wrap
// domain.ErrWeakPassword so callers can match the error kind.
func (p *PasswordPolicy) Validate(password string) error {
	if p.MinLength > 0 && len(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters long", domain.ErrWeakPassword, p.MinLength)
	}
	if p.RequireUppercase && !containsFunc(password, unicode.IsUpper) {
		return fmt.Errorf("%w: must contain at least one uppercase letter", domain.ErrWeakPassword)
	}
	if p.RequireLowercase && !containsFunc(password, unicode.IsLower) {
		return fmt.Errorf("%w: must contain at least one lowercase letter", domain.ErrWeakPassword)
	}
	if p.RequireDigit && !containsFunc(password, unicode.IsDigit) {
		return fmt.Errorf("%w: must contain at least one digit", domain.ErrWeakPassword)
	}
	if p.RequireSymbol && !strings.ContainsAny(password, passwordSymbols) {
		return fmt.Errorf("%w: must contain at least one symbol (%s)", domain.ErrWeakPassword, passwordSymbols)
	}
	return nil
}

func containsFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if f(r) {
			return true
		}
	}
	return false
}
