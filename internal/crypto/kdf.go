package crypto

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize          = 16     // Salt size in bytes
	KeySize           = 32     // AES-256 key size
	NonceSize         = 12     // GCM nonce size
	TagSize           = 16     // GCM authentication tag size
	DefaultIterations = 210000 // Default PBKDF2 iterations (OWASP minimum)
	MinIterations     = 100000
)

var ErrInvalidSalt = errors.New("invalid salt")

// DeriveKey derives an encryption key from a passphrase and salt.
// The same passphrase and salt always produce the same key.
// The caller owns the returned slice and should ClearBytes it after use.
func DeriveKey(passphrase string, salt []byte, iterations int) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, ErrInvalidSalt
	}
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return pbkdf2.Key([]byte(passphrase), salt, iterations, KeySize, sha256.New), nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
