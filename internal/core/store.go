package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/illarion/sealstore/internal/crypto"
	"github.com/illarion/sealstore/internal/envelope"
	"github.com/illarion/sealstore/internal/fingerprint"
	"github.com/illarion/sealstore/internal/storage"
)

const DefaultPrefix = "sealstore:"

// availabilityKey is written and deleted by IsAvailable. It is reserved so
// the check can never clobber or expose a caller's entry.
const availabilityKey = "__availability__"

// Policy decides what Set does when the cipher reports itself available
// but encryption still fails.
type Policy int

const (
	// PolicyFailWrite makes the write return false.
	PolicyFailWrite Policy = iota
	// PolicyDowngradeLegacy stores the value with the legacy obfuscator.
	PolicyDowngradeLegacy
	// PolicyDowngradePlaintext stores the envelope unencrypted.
	PolicyDowngradePlaintext
)

// ParsePolicy maps a configuration name (fail, legacy, plaintext) to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "fail":
		return PolicyFailWrite, nil
	case "legacy":
		return PolicyDowngradeLegacy, nil
	case "plaintext":
		return PolicyDowngradePlaintext, nil
	default:
		return PolicyFailWrite, fmt.Errorf("unknown encryption fallback policy %q", name)
	}
}

// SetOptions controls how a value is written.
type SetOptions struct {
	Encrypt bool
	// TTL of zero or less means the entry never expires.
	TTL time.Duration
	// Persistent selects the persistent store instead of the session store.
	Persistent bool
}

// Store is the public face of the engine. Every logical key is kept under
// a fixed prefix in one of two backends. No method returns an error: writes
// report success as a bool and reads fall back to a miss, with the cause
// logged.
type Store struct {
	session    storage.Backend
	persistent storage.Backend
	prefix     string

	cipher     *crypto.Cipher
	codec      *envelope.Codec
	passphrase func() string
	policy     Policy

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithCipher replaces the AEAD cipher.
func WithCipher(c *crypto.Cipher) Option {
	return func(s *Store) {
		s.cipher = c
	}
}

// WithPassphrase replaces the fingerprint passphrase source. It is used
// for the legacy obfuscator and, unless WithCipher is given, the cipher.
func WithPassphrase(fn func() string) Option {
	return func(s *Store) {
		s.passphrase = fn
	}
}

// WithEncryptFailurePolicy sets the policy applied when encryption fails.
func WithEncryptFailurePolicy(p Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store over a session and a persistent backend.
func New(session, persistent storage.Backend, opts ...Option) *Store {
	s := &Store{
		session:    session,
		persistent: persistent,
		prefix:     DefaultPrefix,
		policy:     PolicyFailWrite,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.passphrase == nil {
		s.passphrase = fingerprint.NewDeriver(fingerprint.ProbeOptions{Geometry: true}).Passphrase
	}
	if s.cipher == nil {
		s.cipher = crypto.NewCipher(s.passphrase)
	}
	s.codec = envelope.NewCodec(s.cipher, s.passphrase)

	return s
}

// Set stores value under key. With Encrypt it uses the AEAD cipher when
// available and the legacy obfuscator otherwise. It returns false when the
// value cannot be serialized, sealed or written; prior state is then left
// untouched.
func (s *Store) Set(ctx context.Context, key string, value any, opts SetOptions) bool {
	return s.set(ctx, key, value, opts, true)
}

func (s *Store) set(ctx context.Context, key string, value any, opts SetOptions, allowCipher bool) bool {
	if key == "" {
		s.logger.Warn("refusing to store an empty key")
		s.metrics.observe(opSet, resultError)
		return false
	}
	if key == availabilityKey {
		s.logger.Warn("refusing to store a reserved key", "key", key)
		s.metrics.observe(opSet, resultError)
		return false
	}

	raw, err := s.seal(key, value, opts, allowCipher)
	if err != nil {
		s.logger.Error("failed to prepare value", "key", key, "error", err)
		s.metrics.observe(opSet, resultError)
		return false
	}

	target, other := s.session, s.persistent
	if opts.Persistent {
		target, other = s.persistent, s.session
	}

	if err := target.Set(ctx, s.prefix+key, raw); err != nil {
		s.logger.Error("failed to write value", "key", key, "persistent", opts.Persistent, "error", err)
		s.metrics.observe(opSet, resultError)
		return false
	}

	// A copy left in the other store would shadow or outlive this write.
	if err := other.Delete(ctx, s.prefix+key); err != nil {
		s.logger.Warn("failed to remove stale copy", "key", key, "error", err)
	}

	s.metrics.observe(opSet, resultOK)
	return true
}

func (s *Store) seal(key string, value any, opts SetOptions, allowCipher bool) ([]byte, error) {
	env, err := envelope.Wrap(value, opts.TTL, opts.Encrypt, s.now())
	if err != nil {
		return nil, err
	}

	if !opts.Encrypt {
		return s.codec.Seal(env, envelope.ModePlain)
	}
	if !allowCipher {
		return s.codec.Seal(env, envelope.ModeLegacy)
	}

	if !s.cipher.Available() {
		s.logger.Warn("cryptographic provider unavailable, storing with legacy obfuscation", "key", key)
		s.metrics.degrade(degradeLegacy)
		return s.codec.Seal(env, envelope.ModeLegacy)
	}

	raw, err := s.codec.Seal(env, envelope.ModeAEAD)
	if err == nil {
		return raw, nil
	}

	switch s.policy {
	case PolicyDowngradeLegacy:
		s.logger.Warn("encryption failed, storing with legacy obfuscation", "key", key, "error", err)
		s.metrics.degrade(degradeLegacy)
		return s.codec.Seal(env, envelope.ModeLegacy)
	case PolicyDowngradePlaintext:
		s.logger.Warn("encryption failed, storing unencrypted", "key", key, "error", err)
		s.metrics.degrade(degradePlaintext)
		env.Encrypted = false
		return s.codec.Seal(env, envelope.ModePlain)
	default:
		return nil, fmt.Errorf("encrypt: %w", err)
	}
}

// lookupStatus describes the outcome of reading one key.
type lookupStatus int

const (
	statusFound lookupStatus = iota
	statusMissing
	statusExpired
	statusUnreadable
)

// Get returns the raw JSON value stored under key. It reports false when
// the key is absent, expired or unreadable. Expired entries are removed.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	data, status := s.lookup(ctx, key, false)
	s.metrics.observe(opGet, status.result())
	return data, status == statusFound
}

// GetValue decodes the value under key into T, returning def on any miss
// or decode failure.
func GetValue[T any](ctx context.Context, s *Store, key string, def T) T {
	data, ok := s.Get(ctx, key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.Warn("stored value does not match requested type", "key", key, "error", err)
		return def
	}
	return v
}

func (s *Store) lookup(ctx context.Context, key string, legacyOnly bool) (json.RawMessage, lookupStatus) {
	if key == "" || key == availabilityKey {
		return nil, statusMissing
	}

	raw, err := s.read(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("failed to read value", "key", key, "error", err)
			return nil, statusUnreadable
		}
		return nil, statusMissing
	}

	open := s.codec.Open
	if legacyOnly {
		open = s.codec.OpenLegacyOnly
	}
	env, format, err := open(raw)
	if err != nil {
		s.logger.Warn("stored value unreadable", "key", key, "format", format.String(), "error", err)
		return nil, statusUnreadable
	}

	if env.Expired(s.now()) {
		s.purge(ctx, key)
		s.metrics.expire()
		return nil, statusExpired
	}

	return env.Data, statusFound
}

// read consults the session store first, then the persistent one.
func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.session.Get(ctx, s.prefix+key)
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("session store read failed, trying persistent store", "key", key, "error", err)
	}
	return s.persistent.Get(ctx, s.prefix+key)
}

// Remove deletes key from both stores. Removing an absent key succeeds.
func (s *Store) Remove(ctx context.Context, key string) bool {
	ok := s.purge(ctx, key)
	if ok {
		s.metrics.observe(opRemove, resultOK)
	} else {
		s.metrics.observe(opRemove, resultError)
	}
	return ok
}

func (s *Store) purge(ctx context.Context, key string) bool {
	ok := true
	for _, b := range s.backends() {
		if err := b.Delete(ctx, s.prefix+key); err != nil {
			s.logger.Error("failed to remove value", "key", key, "error", err)
			ok = false
		}
	}
	return ok
}

// Clear removes every prefixed key from both stores. Keys outside the
// prefix are never touched.
func (s *Store) Clear(ctx context.Context) bool {
	ok := true
	for _, b := range s.backends() {
		keys, err := b.Keys(ctx)
		if err != nil {
			s.logger.Error("failed to list keys", "error", err)
			ok = false
			continue
		}
		for _, k := range keys {
			if !strings.HasPrefix(k, s.prefix) {
				continue
			}
			if err := b.Delete(ctx, k); err != nil {
				s.logger.Error("failed to remove value", "key", strings.TrimPrefix(k, s.prefix), "error", err)
				ok = false
			}
		}
	}

	if ok {
		s.metrics.observe(opClear, resultOK)
	} else {
		s.metrics.observe(opClear, resultError)
	}
	return ok
}

// Keys returns the sorted, de-duplicated logical keys of both stores.
func (s *Store) Keys(ctx context.Context) []string {
	seen := make(map[string]struct{})
	for _, b := range s.backends() {
		keys, err := b.Keys(ctx)
		if err != nil {
			s.logger.Error("failed to list keys", "error", err)
			continue
		}
		for _, k := range keys {
			if logical, ok := strings.CutPrefix(k, s.prefix); ok && logical != "" && logical != availabilityKey {
				seen[logical] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsAvailable checks both stores with a throwaway write, read and delete
// of a reserved key.
func (s *Store) IsAvailable(ctx context.Context) bool {
	key := s.prefix + availabilityKey
	for _, b := range s.backends() {
		if err := b.Set(ctx, key, []byte("1")); err != nil {
			s.logger.Warn("storage unavailable", "error", err)
			return false
		}
		if _, err := b.Get(ctx, key); err != nil {
			s.logger.Warn("storage unavailable", "error", err)
			if err := b.Delete(ctx, key); err != nil {
				s.logger.Warn("failed to remove availability check key", "error", err)
			}
			return false
		}
		if err := b.Delete(ctx, key); err != nil {
			s.logger.Warn("storage unavailable", "error", err)
			return false
		}
	}
	return true
}

// CipherAvailable reports whether values can be written in v2 format.
func (s *Store) CipherAvailable() bool {
	return s.cipher.Available()
}

// Close closes both backends.
func (s *Store) Close() error {
	return errors.Join(s.session.Close(), s.persistent.Close())
}

func (s *Store) backends() []storage.Backend {
	return []storage.Backend{s.session, s.persistent}
}
