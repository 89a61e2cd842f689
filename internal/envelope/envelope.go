// Package envelope wraps stored values with their write timestamp, TTL and
// encryption flag, and converts envelopes to and from the three on-disk
// formats: v2 (AEAD blob), v1 (legacy obfuscation) and plain JSON.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/sealstore/internal/crypto"
	"github.com/illarion/sealstore/internal/obfuscate"
)

var (
	ErrFormat             = errors.New("unrecognized envelope format")
	ErrCipherPathRequired = errors.New("v2 blob requires the cipher path")
)

// Format identifies how a raw stored value is encoded.
type Format int

const (
	FormatPlain Format = iota
	FormatLegacy
	FormatV2
)

func (f Format) String() string {
	switch f {
	case FormatV2:
		return "v2"
	case FormatLegacy:
		return "legacy"
	default:
		return "plain"
	}
}

// Mode selects the encoding used by Codec.Seal.
type Mode int

const (
	ModePlain Mode = iota
	ModeLegacy
	ModeAEAD
)

// Envelope is the metadata-wrapped form of a stored value. Timestamp is
// set once by Wrap and never changed afterwards.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       *int64          `json:"ttl,omitempty"`
	Encrypted bool            `json:"encrypted"`
}

// Wrap serializes value into a new envelope stamped with now.
// A ttl of zero or less means the entry never expires.
func Wrap(value any, ttl time.Duration, encrypted bool, now time.Time) (*Envelope, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value: %w", err)
	}

	env := &Envelope{
		Data:      data,
		Timestamp: now.UnixMilli(),
		Encrypted: encrypted,
	}
	if ttl > 0 {
		ms := ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		env.TTL = &ms
	}
	return env, nil
}

// Expired reports whether more than TTL milliseconds have passed since the
// envelope was written.
func (e *Envelope) Expired(now time.Time) bool {
	if e.TTL == nil {
		return false
	}
	return now.UnixMilli()-e.Timestamp > *e.TTL
}

// ExpiresAt returns the expiry instant, or the zero time for entries
// without a TTL.
func (e *Envelope) ExpiresAt() time.Time {
	if e.TTL == nil {
		return time.Time{}
	}
	return time.UnixMilli(e.Timestamp + *e.TTL)
}

// Detect classifies raw stored bytes. It does not validate them.
func Detect(raw []byte) Format {
	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.Version == crypto.BlobVersion {
		return FormatV2
	}
	if obfuscate.LooksEncoded(string(bytes.TrimSpace(raw))) {
		return FormatLegacy
	}
	return FormatPlain
}

func parse(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(env.Data) == 0 || env.Timestamp <= 0 {
		return nil, fmt.Errorf("%w: missing data or timestamp", ErrFormat)
	}
	if env.TTL != nil && *env.TTL < 0 {
		return nil, fmt.Errorf("%w: negative ttl", ErrFormat)
	}
	return &env, nil
}
