package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// DefaultTokenBytes is the entropy of verification and reset tokens.
// 32 bytes encodes to 64 lowercase hex characters.
const DefaultTokenBytes = 32

// GenerateToken returns n bytes from the OS CSPRNG encoded as lowercase hex.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
