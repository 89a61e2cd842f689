package core

import (
	"context"
	"time"
)

const (
	// SecureTTL is the lifetime of values written by SetSecure.
	SecureTTL = 24 * time.Hour
	// TemporaryTTL is the SetTemporary lifetime when none is given.
	TemporaryTTL = time.Hour
)

// SetSecure encrypts value into the session store for SecureTTL.
func (s *Store) SetSecure(ctx context.Context, key string, value any) bool {
	return s.Set(ctx, key, value, SetOptions{Encrypt: true, TTL: SecureTTL})
}

// GetSecure reads a value written by SetSecure.
func GetSecure[T any](ctx context.Context, s *Store, key string, def T) T {
	return GetValue(ctx, s, key, def)
}

// SetTemporary writes value unencrypted into the session store. A ttl of
// zero or less selects TemporaryTTL.
func (s *Store) SetTemporary(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = TemporaryTTL
	}
	return s.Set(ctx, key, value, SetOptions{TTL: ttl})
}

// SetPersistent encrypts value into the persistent store with no expiry.
func (s *Store) SetPersistent(ctx context.Context, key string, value any) bool {
	return s.Set(ctx, key, value, SetOptions{Encrypt: true, Persistent: true})
}
