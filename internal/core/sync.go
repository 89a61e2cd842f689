package core

import (
	"context"
	"encoding/json"
)

// SetSync is Set restricted to primitives that never block on key
// derivation. Values requested encrypted are written with the legacy
// obfuscator, never as v2 blobs.
func (s *Store) SetSync(ctx context.Context, key string, value any, opts SetOptions) bool {
	return s.set(ctx, key, value, opts, false)
}

// GetSync reads plain and legacy values. A v2 blob is reported as a miss
// and left in place; use Get for those.
func (s *Store) GetSync(ctx context.Context, key string) (json.RawMessage, bool) {
	data, status := s.lookup(ctx, key, true)
	s.metrics.observe(opGetSync, status.result())
	return data, status == statusFound
}

// GetSyncValue is GetValue over the synchronous read path.
func GetSyncValue[T any](ctx context.Context, s *Store, key string, def T) T {
	data, ok := s.GetSync(ctx, key)
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
