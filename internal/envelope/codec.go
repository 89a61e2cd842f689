package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/illarion/sealstore/internal/crypto"
	"github.com/illarion/sealstore/internal/obfuscate"
)

// Codec converts envelopes to stored bytes and back.
type Codec struct {
	cipher     *crypto.Cipher
	passphrase func() string
}

// NewCodec creates a codec. cipher may be nil, in which case v2 blobs can
// be neither written nor read.
func NewCodec(cipher *crypto.Cipher, passphrase func() string) *Codec {
	return &Codec{cipher: cipher, passphrase: passphrase}
}

// Seal serializes env in the requested mode.
func (c *Codec) Seal(env *Envelope, mode Mode) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize envelope: %w", err)
	}

	switch mode {
	case ModePlain:
		return payload, nil
	case ModeLegacy:
		return []byte(obfuscate.Encode(string(payload), c.passphrase())), nil
	case ModeAEAD:
		if c.cipher == nil {
			return nil, crypto.ErrUnavailable
		}
		blob, err := c.cipher.Encrypt(payload)
		crypto.ClearBytes(payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(blob)
	default:
		return nil, fmt.Errorf("unknown mode %d", mode)
	}
}

// Open decodes raw bytes of any supported format. Detection order is v2,
// then legacy, then plain.
func (c *Codec) Open(raw []byte) (*Envelope, Format, error) {
	return c.open(raw, true)
}

// OpenLegacyOnly decodes plain and legacy values without touching the
// cipher. v2 blobs yield ErrCipherPathRequired.
func (c *Codec) OpenLegacyOnly(raw []byte) (*Envelope, Format, error) {
	return c.open(raw, false)
}

func (c *Codec) open(raw []byte, allowCipher bool) (*Envelope, Format, error) {
	format := Detect(raw)

	switch format {
	case FormatV2:
		if !allowCipher {
			return nil, format, ErrCipherPathRequired
		}
		if c.cipher == nil {
			return nil, format, crypto.ErrUnavailable
		}
		var blob crypto.Blob
		if err := json.Unmarshal(raw, &blob); err != nil {
			return nil, format, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		plaintext, err := c.cipher.Decrypt(&blob)
		if err != nil {
			return nil, format, err
		}
		defer crypto.ClearBytes(plaintext)
		env, err := parse(plaintext)
		return env, format, err

	case FormatLegacy:
		text, ok := obfuscate.Decode(string(bytes.TrimSpace(raw)), c.passphrase())
		if !ok {
			return nil, format, fmt.Errorf("%w: legacy decode failed", ErrFormat)
		}
		env, err := parse([]byte(text))
		return env, format, err

	default:
		env, err := parse(raw)
		return env, format, err
	}
}
