package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id default parameters (OWASP recommended)
const (
	defaultArgon2Time    = 2
	defaultArgon2Memory  = 64 * 1024 // 64 MB
	defaultArgon2Threads = 1
	argon2KeyLen         = 32
	saltLen              = 16
)

// Hasher hashes and verifies passwords using Argon2id. The zero value is
// not usable; construct with NewHasher.
type Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

// NewHasher creates a Hasher with the given cost parameters. Zero values
// fall back to the defaults.
func NewHasher(timeCost, memoryCost uint32, parallelism uint8) *Hasher {
	if timeCost == 0 {
		timeCost = defaultArgon2Time
	}
	if memoryCost == 0 {
		memoryCost = defaultArgon2Memory
	}
	if parallelism == 0 {
		parallelism = defaultArgon2Threads
	}
	return &Hasher{time: timeCost, memory: memoryCost, threads: parallelism}
}

// Hash hashes a password with a fresh random salt. Two calls on the same
// input produce different encodings.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, argon2KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=2,p=1$<salt>$<hash>
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks a password against an encoded Argon2id hash. It returns
// false for malformed input instead of an error so callers cannot be
// faulted by attacker-supplied hashes.
func (h *Hasher) Verify(password, encoded string) bool {
	hash, salt, time, memory, threads, err := decodeHash(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}

func decodeHash(encoded string) (hash, salt []byte, time, memory uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id hash")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed argon2id parameters: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed salt: %w", err)
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed hash: %w", err)
	}
	return hash, salt, time, memory, threads, nil
}
