package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

type frozenClock struct{ t time.Time }

func (c *frozenClock) Now() time.Time { return c.t }

func TestSessionCodec_IssueAndVerify(t *testing.T) {
	clock := &frozenClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec := NewSessionCodec([]byte("0123456789abcdef0123456789abcdef"), clock)
	accountID := uuid.New()

	token, expiresAt, err := codec.Issue(accountID, "user@example.com", 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if want := clock.t.Add(24 * time.Hour); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "user@example.com")
	}
	id, err := claims.AccountID()
	if err != nil {
		t.Fatalf("AccountID failed: %v", err)
	}
	if id != accountID {
		t.Errorf("AccountID = %v, want %v", id, accountID)
	}
}

func TestSessionCodec_Expired(t *testing.T) {
	clock := &frozenClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec := NewSessionCodec([]byte("0123456789abcdef0123456789abcdef"), clock)

	token, _, err := codec.Issue(uuid.New(), "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock.t = clock.t.Add(2 * time.Hour)
	if _, err := codec.Verify(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("Verify of expired token = %v, want ErrTokenInvalid", err)
	}
}

func TestSessionCodec_WrongSecret(t *testing.T) {
	clock := &frozenClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec := NewSessionCodec([]byte("0123456789abcdef0123456789abcdef"), clock)
	other := NewSessionCodec([]byte("ffffffffffffffffffffffffffffffff"), clock)

	token, _, err := codec.Issue(uuid.New(), "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("Verify with wrong secret = %v, want ErrTokenInvalid", err)
	}
}

func TestSessionCodec_Tampered(t *testing.T) {
	clock := &frozenClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	codec := NewSessionCodec([]byte("0123456789abcdef0123456789abcdef"), clock)

	token, _, err := codec.Issue(uuid.New(), "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := codec.Verify(tampered); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("Verify of tampered token = %v, want ErrTokenInvalid", err)
	}
}
