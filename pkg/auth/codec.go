package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/credstack/credstack/pkg/domain"
)

// SessionClaims are the claims carried by a signed session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// AccountID returns the subject claim parsed as an account ID.
func (c *SessionClaims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// SessionCodec signs and verifies tamper-evident session tokens.
type SessionCodec struct {
	secret []byte
	clock  Clock
}

// NewSessionCodec creates a codec signing with the given secret.
// The secret must be high-entropy; enforcing a minimum length is the
// config layer's job.
func NewSessionCodec(secret []byte, clock Clock) *SessionCodec {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SessionCodec{secret: secret, clock: clock}
}

// Issue produces a signed token encoding the account identity and expiry.
func (c *SessionCodec) Issue(accountID uuid.UUID, email string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	now := c.clock.Now()
	expiresAt = now.Add(ttl)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature integrity and expiry and returns the decoded
// claims. A token with a valid signature but a passed expiry is invalid,
// not merely stale.
func (c *SessionCodec) Verify(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.clock.Now))
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
