package auth

import (
	"errors"
	"testing"

	"github.com/credstack/credstack/pkg/domain"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ngPass!1", false},
		{"too short", "S7o!abc", true},
		{"no uppercase", "str0ngpass!1", true},
		{"no lowercase", "STR0NGPASS!1", true},
		{"no digit", "StrongPass!!", true},
		{"no symbol", "Str0ngPass11", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.password)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate should fail")
				}
				if !errors.Is(err, domain.ErrWeakPassword) {
					t.Errorf("error should wrap ErrWeakPassword, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestPasswordPolicy_MinLengthOnly(t *testing.T) {
	policy := &PasswordPolicy{MinLength: 12}

	if err := policy.Validate("simple enough"); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	if err := policy.Validate("short"); err == nil {
		t.Error("Validate should fail below minimum length")
	}
}
