// Package crypto provides the key derivation and authenticated encryption
// used by sealstore for "v2" blobs.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the fingerprint passphrase via PBKDF2
//   - 12-byte random nonce per encryption operation
//   - 16-byte random salt per encryption operation (stored with the blob)
//
// Key derivation uses PBKDF2-HMAC-SHA256 with 210,000 iterations
// (OWASP minimum recommendation). Iteration counts below 100,000 are
// raised to MinIterations.
//
// Keys are never persisted. Every Encrypt and Decrypt call rederives the
// key from the current passphrase and the blob's salt, then zeroes it.
package crypto
