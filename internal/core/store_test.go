package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/sealstore/internal/crypto"
	"github.com/illarion/sealstore/internal/envelope"
	"github.com/illarion/sealstore/internal/logging"
	"github.com/illarion/sealstore/internal/storage"
)

const testFingerprint = "test-fingerprint"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func passphrase(s string) func() string {
	return func() string { return s }
}

func fastCipher(pass func() string, opts ...crypto.Option) *crypto.Cipher {
	return crypto.NewCipher(pass, append([]crypto.Option{crypto.WithIterations(crypto.MinIterations)}, opts...)...)
}

// entropyOnce serves the cipher's availability check and then fails, so the cipher
// reports itself available while every Encrypt fails.
type entropyOnce struct {
	served bool
}

func (r *entropyOnce) Read(p []byte) (int, error) {
	if r.served {
		return 0, errors.New("entropy exhausted")
	}
	r.served = true
	return len(p), nil
}

type harness struct {
	store      *Store
	session    *storage.Memory
	persistent *storage.Memory
	clock      *fakeClock
	metrics    *Metrics
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		session:    storage.NewMemory(),
		persistent: storage.NewMemory(),
		clock:      &fakeClock{now: time.UnixMilli(1_700_000_000_000)},
		metrics:    NewMetrics(prometheus.NewRegistry()),
	}

	pass := passphrase(testFingerprint)
	base := []Option{
		WithLogger(logging.Discard()),
		WithPassphrase(pass),
		WithCipher(fastCipher(pass)),
		WithClock(h.clock.Now),
		WithMetrics(h.metrics),
	}
	h.store = New(h.session, h.persistent, append(base, opts...)...)
	t.Cleanup(func() { h.store.Close() })
	return h
}

func (h *harness) raw(t *testing.T, b storage.Backend, key string) []byte {
	t.Helper()
	raw, err := b.Get(context.Background(), DefaultPrefix+key)
	require.NoError(t, err)
	return raw
}

type profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tests := []struct {
		name string
		opts SetOptions
	}{
		{"plain session", SetOptions{}},
		{"plain persistent", SetOptions{Persistent: true}},
		{"encrypted session", SetOptions{Encrypt: true}},
		{"encrypted persistent with ttl", SetOptions{Encrypt: true, Persistent: true, TTL: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := profile{Name: "ada", Age: 36}
			require.True(t, h.store.Set(ctx, "profile", want, tt.opts))

			got := GetValue(ctx, h.store, "profile", profile{})
			assert.Equal(t, want, got)
		})
	}

	assert.Equal(t, 4.0, testutil.ToFloat64(h.metrics.operations.WithLabelValues(opSet, resultOK)))
}

func TestEncryptedValueIsNotStoredInPlaintext(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "token", "abc123", SetOptions{Encrypt: true, Persistent: true}))

	raw := h.raw(t, h.persistent, "token")
	assert.NotContains(t, string(raw), "abc123")
	assert.Equal(t, envelope.FormatV2, envelope.Detect(raw))
	assert.Equal(t, "abc123", GetValue(ctx, h.store, "token", ""))
}

func TestPersistentEncryptedTokenWithTTL(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "token", "abc123", SetOptions{Encrypt: true, TTL: time.Hour, Persistent: true}))

	_, err := h.session.Get(ctx, DefaultPrefix+"token")
	assert.ErrorIs(t, err, storage.ErrNotFound, "persistent writes skip the session store")

	raw := h.raw(t, h.persistent, "token")
	assert.NotContains(t, string(raw), "abc123")

	var blob crypto.Blob
	require.NoError(t, json.Unmarshal(raw, &blob))
	assert.Equal(t, crypto.BlobVersion, blob.Version)

	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	require.NoError(t, err)
	assert.Len(t, salt, crypto.SaltSize)

	nonce, err := base64.StdEncoding.DecodeString(blob.Nonce)
	require.NoError(t, err)
	assert.Len(t, nonce, crypto.NonceSize)

	ciphertext, err := base64.StdEncoding.DecodeString(blob.Ciphertext)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(ciphertext), crypto.TagSize+len(`"abc123"`))

	for _, field := range [][]byte{salt, nonce, ciphertext} {
		assert.False(t, bytes.Contains(field, []byte("abc123")))
	}

	plaintext, err := fastCipher(passphrase(testFingerprint)).Decrypt(&blob)
	require.NoError(t, err)
	var env envelope.Envelope
	require.NoError(t, json.Unmarshal(plaintext, &env))
	require.NotNil(t, env.TTL)
	assert.Equal(t, int64(3_600_000), *env.TTL)
	assert.Equal(t, h.clock.Now().UnixMilli(), env.Timestamp)
	assert.True(t, env.Encrypted)
	assert.JSONEq(t, `"abc123"`, string(env.Data))

	assert.Equal(t, "abc123", GetValue(ctx, h.store, "token", ""))

	h.clock.Advance(time.Hour)
	assert.Equal(t, "abc123", GetValue(ctx, h.store, "token", ""), "ttl boundary is inclusive")

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, "", GetValue(ctx, h.store, "token", ""))
	_, err = h.persistent.Get(ctx, DefaultPrefix+"token")
	assert.ErrorIs(t, err, storage.ErrNotFound, "expired entry is removed on read")
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "k", "v", SetOptions{TTL: 100 * time.Millisecond}))

	h.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, "v", GetValue(ctx, h.store, "k", ""), "entry is still valid at exactly its TTL")

	h.clock.Advance(50 * time.Millisecond)
	_, ok := h.store.Get(ctx, "k")
	assert.False(t, ok)

	_, err := h.session.Get(ctx, DefaultPrefix+"k")
	assert.ErrorIs(t, err, storage.ErrNotFound, "expired entry must be removed")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.expired))
}

func TestTTLExpiryWallClock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, WithClock(time.Now))

	require.True(t, h.store.Set(ctx, "k", "v", SetOptions{TTL: 100 * time.Millisecond}))
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, "default", GetValue(ctx, h.store, "k", "default"))
	assert.Empty(t, h.store.Keys(ctx))
}

func TestSecureTokenLifetime(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.SetSecure(ctx, "token", "abc123"))
	assert.Equal(t, "abc123", GetSecure(ctx, h.store, "token", ""))

	raw := h.raw(t, h.session, "token")
	assert.NotContains(t, string(raw), "abc123")

	h.clock.Advance(SecureTTL + time.Hour)
	assert.Equal(t, "", GetSecure(ctx, h.store, "token", ""))
	assert.Empty(t, h.store.Keys(ctx))
}

func TestPresets(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.SetTemporary(ctx, "draft", "hello", 0))
	raw := h.raw(t, h.session, "draft")
	assert.Equal(t, envelope.FormatPlain, envelope.Detect(raw))

	h.clock.Advance(TemporaryTTL - time.Minute)
	assert.Equal(t, "hello", GetValue(ctx, h.store, "draft", ""))
	h.clock.Advance(2 * time.Minute)
	assert.Equal(t, "", GetValue(ctx, h.store, "draft", ""))

	require.True(t, h.store.SetPersistent(ctx, "settings", map[string]bool{"dark": true}))
	raw = h.raw(t, h.persistent, "settings")
	assert.Equal(t, envelope.FormatV2, envelope.Detect(raw))

	h.clock.Advance(10 * 365 * 24 * time.Hour)
	assert.Equal(t, map[string]bool{"dark": true}, GetValue[map[string]bool](ctx, h.store, "settings", nil))
}

func TestWriteRemovesCopyFromOtherStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "k", "session", SetOptions{}))
	require.True(t, h.store.Set(ctx, "k", "persistent", SetOptions{Persistent: true}))

	_, err := h.session.Get(ctx, DefaultPrefix+"k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, "persistent", GetValue(ctx, h.store, "k", ""))
	assert.Equal(t, []string{"k"}, h.store.Keys(ctx))
}

func TestSessionShadowsPersistent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// Written behind the store's back so both stores hold the key.
	require.True(t, h.store.Set(ctx, "k", "persistent", SetOptions{Persistent: true}))
	raw := h.raw(t, h.persistent, "k")
	require.NoError(t, h.session.Set(ctx, DefaultPrefix+"k", []byte(strings.Replace(string(raw), "persistent", "session", 1))))

	assert.Equal(t, "session", GetValue(ctx, h.store, "k", ""))
}

func TestClearOnlyTouchesPrefixedKeys(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.session.Set(ctx, "other:app", []byte("keep")))
	require.NoError(t, h.persistent.Set(ctx, "unrelated", []byte("keep")))
	require.True(t, h.store.Set(ctx, "a", 1, SetOptions{}))
	require.True(t, h.store.Set(ctx, "b", 2, SetOptions{Persistent: true, Encrypt: true}))

	require.True(t, h.store.Clear(ctx))
	assert.Empty(t, h.store.Keys(ctx))

	v, err := h.session.Get(ctx, "other:app")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(v))
	_, err = h.persistent.Get(ctx, "unrelated")
	assert.NoError(t, err)
}

func TestKeysSortedAndDeduplicated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for _, k := range []string{"zeta", "alpha", "mid"} {
		require.True(t, h.store.Set(ctx, k, k, SetOptions{}))
	}
	require.True(t, h.store.Set(ctx, "beta", "b", SetOptions{Persistent: true}))
	require.NoError(t, h.persistent.Set(ctx, DefaultPrefix+"alpha", []byte(`{"data":"x","timestamp":1,"encrypted":false}`)))
	require.NoError(t, h.session.Set(ctx, "foreign", []byte("x")))

	assert.Equal(t, []string{"alpha", "beta", "mid", "zeta"}, h.store.Keys(ctx))
}

func TestCustomPrefixIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	session, persistent := storage.NewMemory(), storage.NewMemory()
	pass := passphrase(testFingerprint)

	a := New(session, persistent, WithPrefix("a:"), WithPassphrase(pass), WithCipher(fastCipher(pass)), WithLogger(logging.Discard()))
	b := New(session, persistent, WithPrefix("b:"), WithPassphrase(pass), WithCipher(fastCipher(pass)), WithLogger(logging.Discard()))

	require.True(t, a.Set(ctx, "k", "from a", SetOptions{}))
	require.True(t, b.Set(ctx, "k", "from b", SetOptions{}))
	require.True(t, a.Clear(ctx))

	assert.Empty(t, a.Keys(ctx))
	assert.Equal(t, "from b", GetValue(ctx, b, "k", ""))
}

func TestLegacyFallbackWhenCipherUnavailable(t *testing.T) {
	ctx := context.Background()
	pass := passphrase(testFingerprint)
	h := newHarness(t, WithCipher(fastCipher(pass, crypto.WithUnavailable())))

	require.False(t, h.store.CipherAvailable())
	require.True(t, h.store.Set(ctx, "token", "abc123", SetOptions{Encrypt: true}))

	raw := h.raw(t, h.session, "token")
	assert.Equal(t, envelope.FormatLegacy, envelope.Detect(raw))
	assert.NotContains(t, string(raw), "abc123")
	assert.Equal(t, "abc123", GetValue(ctx, h.store, "token", ""))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.degradations.WithLabelValues(degradeLegacy)))
}

func TestEncryptFailurePolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		wantOK    bool
		wantFmt   envelope.Format
		degrading string
	}{
		{"fail write", PolicyFailWrite, false, 0, ""},
		{"downgrade to legacy", PolicyDowngradeLegacy, true, envelope.FormatLegacy, degradeLegacy},
		{"downgrade to plaintext", PolicyDowngradePlaintext, true, envelope.FormatPlain, degradePlaintext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			pass := passphrase(testFingerprint)
			h := newHarness(t,
				WithCipher(fastCipher(pass, crypto.WithRandom(&entropyOnce{}))),
				WithEncryptFailurePolicy(tt.policy))

			require.True(t, h.store.CipherAvailable())
			require.True(t, h.store.Set(ctx, "k", "previous", SetOptions{}))

			ok := h.store.Set(ctx, "k", "abc123", SetOptions{Encrypt: true})
			assert.Equal(t, tt.wantOK, ok)

			if !tt.wantOK {
				assert.Equal(t, "previous", GetValue(ctx, h.store, "k", ""), "failed write must leave prior state")
				return
			}

			raw := h.raw(t, h.session, "k")
			assert.Equal(t, tt.wantFmt, envelope.Detect(raw))
			assert.Equal(t, "abc123", GetValue(ctx, h.store, "k", ""))
			assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.degradations.WithLabelValues(tt.degrading)))

			if tt.policy == PolicyDowngradePlaintext {
				assert.Contains(t, string(raw), `"encrypted":false`)
			}
		})
	}
}

func TestUnreadableValuesReturnDefault(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	garbage := map[string]string{
		"binary":    "\x00\x01garbage",
		"not json":  "hello world",
		"base64":    "AAAAAAAA",
		"bad v2":    `{"ciphertext":"!!","nonce":"AA==","salt":"AA==","version":"v2"}`,
		"no data":   `{"timestamp":1}`,
		"wrong ttl": `{"data":1,"timestamp":1,"ttl":-5}`,
	}

	for name, raw := range garbage {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.persistent.Set(ctx, DefaultPrefix+"k", []byte(raw)))
			assert.Equal(t, "fallback", GetValue(ctx, h.store, "k", "fallback"))

			// Unreadable entries stay where they are.
			_, err := h.persistent.Get(ctx, DefaultPrefix+"k")
			assert.NoError(t, err)
		})
	}
}

func TestTypeMismatchReturnsDefault(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "n", "not a number", SetOptions{}))
	assert.Equal(t, 42, GetValue(ctx, h.store, "n", 42))
}

func TestFingerprintDriftIsAMiss(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "v2", "secret", SetOptions{Encrypt: true, Persistent: true}))
	require.True(t, h.store.SetSync(ctx, "legacy", "secret", SetOptions{Encrypt: true, Persistent: true}))

	drifted := passphrase("another-host")
	other := New(storage.NewMemory(), h.persistent,
		WithPassphrase(drifted), WithCipher(fastCipher(drifted)), WithLogger(logging.Discard()))

	assert.Equal(t, "", GetValue(ctx, other, "v2", ""))
	assert.Equal(t, "", GetValue(ctx, other, "legacy", ""))
	assert.Equal(t, []string{"legacy", "v2"}, other.Keys(ctx))
}

func TestQuotaExceededFailsWrite(t *testing.T) {
	ctx := context.Background()
	pass := passphrase(testFingerprint)
	session := storage.NewMemory(storage.WithCapacity(128))
	store := New(session, storage.NewMemory(),
		WithPassphrase(pass), WithCipher(fastCipher(pass)), WithLogger(logging.Discard()))

	require.True(t, store.Set(ctx, "small", "ok", SetOptions{}))
	assert.False(t, store.Set(ctx, "small", strings.Repeat("x", 256), SetOptions{}))
	assert.Equal(t, "ok", GetValue(ctx, store, "small", ""))
}

func TestSetRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.False(t, h.store.Set(ctx, "", "v", SetOptions{}))
	assert.False(t, h.store.Set(ctx, "ch", make(chan int), SetOptions{}))
	assert.Empty(t, h.store.Keys(ctx))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.operations.WithLabelValues(opSet, resultError)))
}

func TestSyncPathNeverUsesCipher(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.SetSync(ctx, "legacy", "abc123", SetOptions{Encrypt: true}))
	raw := h.raw(t, h.session, "legacy")
	assert.Equal(t, envelope.FormatLegacy, envelope.Detect(raw))
	assert.Equal(t, "abc123", GetSyncValue(ctx, h.store, "legacy", ""))

	require.True(t, h.store.SetSync(ctx, "plain", 7, SetOptions{}))
	assert.Equal(t, 7, GetSyncValue(ctx, h.store, "plain", 0))

	require.True(t, h.store.Set(ctx, "v2", "abc123", SetOptions{Encrypt: true}))
	_, ok := h.store.GetSync(ctx, "v2")
	assert.False(t, ok, "v2 blobs are a miss on the sync path")
	assert.Equal(t, "abc123", GetValue(ctx, h.store, "v2", ""), "and stay readable through Get")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "k", "v", SetOptions{Persistent: true}))
	require.NoError(t, h.session.Set(ctx, DefaultPrefix+"k", h.raw(t, h.persistent, "k")))

	assert.True(t, h.store.Remove(ctx, "k"))
	assert.True(t, h.store.Remove(ctx, "k"), "removing an absent key succeeds")
	assert.Empty(t, h.store.Keys(ctx))
}

func TestIsAvailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	assert.True(t, h.store.IsAvailable(ctx))
	assert.Empty(t, h.store.Keys(ctx), "the check must not leave entries behind")

	require.NoError(t, h.session.Close())
	assert.False(t, h.store.IsAvailable(ctx))
}

func TestReservedKeyRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "user", "alice", SetOptions{Persistent: true}))
	assert.False(t, h.store.Set(ctx, availabilityKey, "mine", SetOptions{Persistent: true}))
	assert.False(t, h.store.SetSync(ctx, availabilityKey, "mine", SetOptions{}))

	require.True(t, h.store.IsAvailable(ctx))
	assert.Equal(t, "alice", GetValue(ctx, h.store, "user", ""))
	assert.Equal(t, []string{"user"}, h.store.Keys(ctx))

	// A leftover check value written outside the store stays invisible.
	require.NoError(t, h.persistent.Set(ctx, DefaultPrefix+availabilityKey, []byte("1")))
	_, ok := h.store.Get(ctx, availabilityKey)
	assert.False(t, ok)
	assert.Equal(t, []string{"user"}, h.store.Keys(ctx))
	for _, e := range h.store.Inspect(ctx) {
		assert.NotEqual(t, availabilityKey, e.Key)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.operations.WithLabelValues(opSet, resultError)))
}

// brokenReads accepts writes but fails every read and delete.
type brokenReads struct {
	*storage.Memory
}

func (b brokenReads) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("read failed")
}

func (b brokenReads) Delete(context.Context, string) error {
	return errors.New("delete failed")
}

func TestIsAvailableLogsCleanupFailure(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	pass := passphrase(testFingerprint)
	s := New(brokenReads{storage.NewMemory()}, storage.NewMemory(),
		WithLogger(logger), WithPassphrase(pass), WithCipher(fastCipher(pass)))
	t.Cleanup(func() { s.Close() })

	assert.False(t, s.IsAvailable(ctx))
	assert.Contains(t, buf.String(), "storage unavailable")
	assert.Contains(t, buf.String(), "failed to remove availability check key")
	assert.Contains(t, buf.String(), "delete failed")
}

func TestReadFallsThroughClosedSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "k", "v", SetOptions{Persistent: true}))
	require.NoError(t, h.session.Close())

	assert.Equal(t, "v", GetValue(ctx, h.store, "k", ""))
	assert.False(t, h.store.Set(ctx, "other", "v", SetOptions{}))
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "short", "v", SetOptions{TTL: time.Second}))
	require.True(t, h.store.Set(ctx, "long", "v", SetOptions{TTL: time.Hour, Persistent: true}))
	require.True(t, h.store.Set(ctx, "forever", "v", SetOptions{Encrypt: true}))
	require.NoError(t, h.persistent.Set(ctx, DefaultPrefix+"broken", []byte("\x00")))

	h.clock.Advance(time.Minute)
	report := h.store.Cleanup(ctx)

	assert.Equal(t, CleanupReport{Visited: 4, Expired: 1, Unreadable: 1}, report)
	assert.Equal(t, []string{"broken", "forever", "long"}, h.store.Keys(ctx))
}

func TestCleanupStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.store.Set(context.Background(), "k", "v", SetOptions{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, CleanupReport{}, h.store.Cleanup(ctx))
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.True(t, h.store.Set(ctx, "plain", "v", SetOptions{TTL: time.Second}))
	require.True(t, h.store.SetSync(ctx, "legacy", "v", SetOptions{Encrypt: true, Persistent: true}))
	require.True(t, h.store.SetPersistent(ctx, "sealed", "v"))
	require.NoError(t, h.persistent.Set(ctx, DefaultPrefix+"junk", []byte("\x00")))

	h.clock.Advance(2 * time.Second)
	entries := h.store.Inspect(ctx)
	require.Len(t, entries, 4)

	byKey := make(map[string]EntryInfo)
	for _, e := range entries {
		byKey[e.Key] = e
	}

	assert.Equal(t, envelope.FormatPlain, byKey["plain"].Format)
	assert.Equal(t, "session", byKey["plain"].Store)
	assert.True(t, byKey["plain"].Expired)
	assert.True(t, h.clock.Now().Add(-time.Second).Equal(byKey["plain"].ExpiresAt))

	assert.Equal(t, envelope.FormatLegacy, byKey["legacy"].Format)
	assert.True(t, byKey["legacy"].Encrypted)

	assert.Equal(t, envelope.FormatV2, byKey["sealed"].Format)
	assert.Equal(t, "persistent", byKey["sealed"].Store)
	assert.True(t, byKey["sealed"].Readable)
	assert.True(t, byKey["sealed"].ExpiresAt.IsZero())

	assert.False(t, byKey["junk"].Readable)

	// Inspect never purges.
	assert.Len(t, h.store.Keys(ctx), 4)
}

func TestParsePolicy(t *testing.T) {
	tests := map[string]Policy{
		"":          PolicyFailWrite,
		"fail":      PolicyFailWrite,
		"Legacy":    PolicyDowngradeLegacy,
		"plaintext": PolicyDowngradePlaintext,
	}
	for in, want := range tests {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePolicy("ignore")
	assert.Error(t, err)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.observe(opGet, resultOK)
	m.degrade(degradeLegacy)
	m.expire()
}
