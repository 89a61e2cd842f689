package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
)

// BlobVersion tags blobs produced by Cipher.Encrypt.
const BlobVersion = "v2"

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrUnavailable       = errors.New("cryptographic provider unavailable")
)

// Blob is the persisted form of an AEAD-encrypted payload.
// Each field is independently Base64 encoded.
type Blob struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Salt       string `json:"salt"`
	Version    string `json:"version"`
}

// Cipher performs AES-256-GCM encryption under keys derived from a
// passphrase source. The passphrase is read on every operation.
type Cipher struct {
	passphrase  func() string
	iterations  int
	random      io.Reader
	unavailable bool

	probeOnce sync.Once
	available bool
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithIterations sets the PBKDF2 iteration count.
func WithIterations(n int) Option {
	return func(c *Cipher) {
		c.iterations = n
	}
}

// WithRandom replaces the source of salts and nonces.
func WithRandom(r io.Reader) Option {
	return func(c *Cipher) {
		c.random = r
	}
}

// WithUnavailable makes the cipher report that no provider exists.
func WithUnavailable() Option {
	return func(c *Cipher) {
		c.unavailable = true
	}
}

// NewCipher creates a cipher that derives keys from passphrase.
func NewCipher(passphrase func() string, opts ...Option) *Cipher {
	c := &Cipher{
		passphrase: passphrase,
		iterations: DefaultIterations,
		random:     rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.iterations < MinIterations {
		c.iterations = MinIterations
	}
	return c
}

// Available reports whether AES-GCM and the random source work in this
// runtime. The result of the first probe is cached.
func (c *Cipher) Available() bool {
	if c == nil || c.unavailable || c.passphrase == nil {
		return false
	}
	c.probeOnce.Do(func() {
		key := make([]byte, KeySize)
		if _, err := newGCM(key); err != nil {
			return
		}
		probe := make([]byte, 1)
		if _, err := io.ReadFull(c.random, probe); err != nil {
			return
		}
		c.available = true
	})
	return c.available
}

// Encrypt seals plaintext under a freshly salted key with a fresh nonce.
func (c *Cipher) Encrypt(plaintext []byte) (*Blob, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := DeriveKey(c.passphrase(), salt, c.iterations)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &Blob{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Version:    BlobVersion,
	}, nil
}

// Decrypt opens a blob with a key rederived from its salt and the current
// passphrase. A changed fingerprint surfaces as ErrAuthFailed.
func (c *Cipher) Decrypt(blob *Blob) ([]byte, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}
	if blob == nil || blob.Version != BlobVersion {
		return nil, ErrInvalidCiphertext
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	if err != nil || len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}
	nonce, err := base64.StdEncoding.DecodeString(blob.Nonce)
	if err != nil || len(nonce) != NonceSize {
		return nil, ErrInvalidCiphertext
	}
	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil || len(salt) != SaltSize {
		return nil, ErrInvalidCiphertext
	}

	key, err := DeriveKey(c.passphrase(), salt, c.iterations)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
