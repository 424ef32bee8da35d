// Package crypto implements PIN/password hashing and payload encryption.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/akulinich/clipshare/internal/errs"
)

// Argon2id parameters (tuned for interactive PIN verification).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashSecret returns a salted Argon2id hash of secret in PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash). The parameters travel with
// the hash so they can be tuned without invalidating stored secrets.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("empty secret: %w", errs.ErrInvalidInput)
	}
	salt, err := RandBytes(saltLen)
	if err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifySecret verifies secret against a PHC-encoded Argon2id hash using a
// constant-time comparison. A mismatch yields (false, nil); only a
// structurally invalid stored hash yields errs.ErrMalformedHash.
func VerifySecret(secret, encoded string) (bool, error) {
	salt, key, memory, time, threads, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(secret), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1, nil
}

// parseHash splits and validates a PHC argon2id string.
func parseHash(encoded string) (salt, key []byte, memory, time uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("bad structure: %w", errs.ErrMalformedHash)
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf("bad version %q: %w", parts[2], errs.ErrMalformedHash)
	}
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("bad parameters %q: %w", parts[3], errs.ErrMalformedHash)
	}
	if memory == 0 || time == 0 || threads == 0 {
		return nil, nil, 0, 0, 0, fmt.Errorf("zero parameter in %q: %w", parts[3], errs.ErrMalformedHash)
	}

	b64 := base64.RawStdEncoding
	if salt, err = b64.DecodeString(parts[4]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("bad salt: %w", errs.ErrMalformedHash)
	}
	if key, err = b64.DecodeString(parts[5]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("bad key: %w", errs.ErrMalformedHash)
	}
	if len(salt) == 0 || len(key) == 0 {
		return nil, nil, 0, 0, 0, fmt.Errorf("empty salt/key: %w", errs.ErrMalformedHash)
	}
	return salt, key, memory, time, threads, nil
}
